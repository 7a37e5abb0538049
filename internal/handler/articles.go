package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/BloggingApp/comment-service/internal/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) articlesGetByID(c *gin.Context) {
	articleIDString := strings.TrimSpace(c.Param("articleID"))
	articleID, err := strconv.Atoi(articleIDString)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, errInvalidArticleID.Error()))
		return
	}

	article, err := h.services.Article.FindByID(c.Request.Context(), int64(articleID))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) articlesGetByAuthor(c *gin.Context) {
	userIDString := strings.TrimSpace(c.Param("userID"))
	userID, err := uuid.Parse(userIDString)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, errInvalidID.Error()))
		return
	}

	var input dto.GetArticlesDto
	if err := c.ShouldBindQuery(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	articles, err := h.services.Article.FindAuthorArticles(c.Request.Context(), userID, input.Limit, input.Offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, articles)
}
