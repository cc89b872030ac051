package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxResetBodyBytes = 4 << 20

type newsletterDetailPayload struct {
	content.Newsletter
	ReadingTime int `json:"readingTime"`
}

type articleDetailPayload struct {
	content.Article
	ReadingTime int `json:"readingTime"`
}

// detailEntry fills the presentation fields a detail page shows and returns
// the estimated reading time in minutes.
func detailEntry(entry *content.Entry) int {
	if strings.TrimSpace(entry.DisplayDate) == "" {
		entry.DisplayDate = content.FormatDisplayDate(entry.Date)
	}
	body := entry.ContentHTML
	if strings.TrimSpace(body) == "" {
		body = entry.Content
	}
	return content.EstimateReadingTime(body, 0)
}

func (h *httpHandler) handleReadCollection(collection content.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := h.store.Read(collection)
		if err != nil {
			h.writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

func (h *httpHandler) handleGetNewsletter(c *gin.Context) {
	id, ok := recordIDParam(c, "id")
	if !ok {
		return
	}
	newsletter, err := h.store.Newsletter(id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	readingTime := detailEntry(&newsletter.Entry)
	c.JSON(http.StatusOK, newsletterDetailPayload{Newsletter: newsletter, ReadingTime: readingTime})
}

func (h *httpHandler) handleRelatedNewsletters(c *gin.Context) {
	id, ok := recordIDParam(c, "id")
	if !ok {
		return
	}
	newsletter, err := h.store.Newsletter(id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	related := content.RelatedNewsletters(h.store.Newsletters().Items, newsletter.Tags, newsletter.ID)
	c.JSON(http.StatusOK, content.NewsletterPage{Items: related})
}

func (h *httpHandler) handleGetArticle(c *gin.Context) {
	id, ok := recordIDParam(c, "id")
	if !ok {
		return
	}
	article, err := h.store.Article(id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	readingTime := detailEntry(&article.Entry)
	c.JSON(http.StatusOK, articleDetailPayload{Article: article, ReadingTime: readingTime})
}

func (h *httpHandler) handleSearchArticles(c *gin.Context) {
	options := content.FilterOptions{
		Query:      c.Query("q"),
		Categories: c.QueryArray("category"),
		Tags:       c.QueryArray("tag"),
		StartDate:  c.Query("from"),
		EndDate:    c.Query("to"),
		SortBy:     content.SortOrder(c.DefaultQuery("sort", string(content.SortDateDesc))),
	}
	filtered := content.FilterArticles(h.store.Articles().Items, options)
	c.JSON(http.StatusOK, content.ArticlePage{Items: filtered})
}

func (h *httpHandler) handleArticleStats(c *gin.Context) {
	c.JSON(http.StatusOK, content.ComputeStats(h.store.Articles().Items))
}

func (h *httpHandler) handleHomepage(c *gin.Context) {
	if h.homepage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "homepage_unavailable"})
		return
	}
	c.JSON(http.StatusOK, h.homepage.Current())
}

type idResponsePayload struct {
	ID string `json:"id"`
}

func (h *httpHandler) handleAddNewsletter(c *gin.Context) {
	var newsletter content.Newsletter
	if err := c.ShouldBindJSON(&newsletter); err != nil {
		writeInvalidRequest(c)
		return
	}
	id, err := h.store.AddNewsletter(newsletter)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponsePayload{ID: id.String()})
}

func (h *httpHandler) handleUpdateNewsletter(c *gin.Context) {
	id, ok := recordIDParam(c, "id")
	if !ok {
		return
	}
	var patch content.NewsletterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidRequest(c)
		return
	}
	updated, err := h.store.UpdateNewsletter(id, patch)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteNewsletter(c *gin.Context) {
	id, ok := recordIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteNewsletter(id); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddArticle(c *gin.Context) {
	var article content.Article
	if err := c.ShouldBindJSON(&article); err != nil {
		writeInvalidRequest(c)
		return
	}
	if problems := content.ValidateArticle(article); len(problems) > 0 {
		h.logger.Debug("article draft has validation warnings", zap.Strings("problems", problems))
	}
	id, err := h.store.AddArticle(article)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponsePayload{ID: id.String()})
}

func (h *httpHandler) handleUpdateArticle(c *gin.Context) {
	id, ok := recordIDParam(c, "id")
	if !ok {
		return
	}
	var patch content.ArticlePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidRequest(c)
		return
	}
	updated, err := h.store.UpdateArticle(id, patch)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteArticle(c *gin.Context) {
	id, ok := recordIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteArticle(id); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reorderRequestPayload struct {
	Positions []content.ArticlePosition `json:"positions"`
}

func (h *httpHandler) handleReorderArticles(c *gin.Context) {
	var request reorderRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Positions) == 0 {
		writeInvalidRequest(c)
		return
	}
	if err := h.store.ReorderArticles(request.Positions); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddTag(c *gin.Context) {
	var tag content.Tag
	if err := c.ShouldBindJSON(&tag); err != nil || strings.TrimSpace(tag.Name) == "" {
		writeInvalidRequest(c)
		return
	}
	if err := h.store.AddTag(tag); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *httpHandler) handleUpdateTag(c *gin.Context) {
	var patch content.TagPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidRequest(c)
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		writeInvalidRequest(c)
		return
	}
	updated, err := h.store.UpdateTag(c.Param("name"), patch)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteTag(c *gin.Context) {
	if err := h.store.DeleteTag(c.Param("name")); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddTestimonial(c *gin.Context) {
	var testimonial content.Testimonial
	if err := c.ShouldBindJSON(&testimonial); err != nil {
		writeInvalidRequest(c)
		return
	}
	id, err := h.store.AddTestimonial(testimonial)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *httpHandler) handleUpdateTestimonial(c *gin.Context) {
	id, ok := testimonialIDParam(c)
	if !ok {
		return
	}
	var patch content.TestimonialPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidRequest(c)
		return
	}
	updated, err := h.store.UpdateTestimonial(id, patch)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteTestimonial(c *gin.Context) {
	id, ok := testimonialIDParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTestimonial(id); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleReset clears the store. A JSON snapshot body replaces the configured
// seed. The archive is merged again unless archive=false is given.
func (h *httpHandler) handleReset(c *gin.Context) {
	seed := h.resetSeed
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxResetBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request_too_large"})
			return
		}
		writeInvalidRequest(c)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		var snapshot content.Snapshot
		if err := json.Unmarshal(body, &snapshot); err != nil {
			writeInvalidRequest(c)
			return
		}
		seed = &snapshot
	}

	h.store.Reset(seed)
	if c.DefaultQuery("archive", "true") != "false" {
		h.store.EnsureAllLoaded(c.Request.Context())
	}
	h.logger.Info("content store reset",
		zap.String("admin", c.GetString(adminSubjectContextKey)),
		zap.Bool("seeded", seed != nil))
	c.JSON(http.StatusOK, h.store.Snapshot())
}

func recordIDParam(c *gin.Context, name string) (content.RecordID, bool) {
	id, err := content.NewRecordID(c.Param(name))
	if err != nil {
		writeInvalidRequest(c)
		return "", false
	}
	return id, true
}

func testimonialIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		writeInvalidRequest(c)
		return 0, false
	}
	return id, true
}
