package handler

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/BloggingApp/comment-service/internal/dto"
	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/BloggingApp/comment-service/internal/service"
	"github.com/BloggingApp/comment-service/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Handler struct {
	services *service.Service
}

func New(services *service.Service) *Handler {
	return &Handler{
		services: services,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	r := gin.New()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{viper.GetString("client.origin")},
		AllowMethods:     []string{"POST", "GET", "DELETE"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	v1 := r.Group("/api/v1")
	{
		articles := v1.Group("/articles")
		{
			articles.GET("/author/:userID", h.articlesGetByAuthor)
			articles.GET("/:articleID", h.notRequiredAuthMiddleware, h.articlesGetByID)
		}

		comments := v1.Group("/comments")
		{
			comments.POST("", h.authMiddleware, h.commentsCreate)

			articleComments := comments.Group("/:articleID")
			{
				articleComments.GET("", h.commentsGet)

				comment := articleComments.Group("/:commentID")
				{
					comment.GET("/replies", h.commentsGetReplies)
					comment.DELETE("", h.authMiddleware, h.commentsDelete)
				}
			}
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.authMiddleware, h.notificationsGet)
		}
	}

	return r
}

func (h *Handler) getUserDataFromAccessTokenClaims(ctx context.Context, accessToken string) (*model.CachedUser, error) {
	claims, err := utils.DecodeJWT(accessToken, []byte(os.Getenv("ACCESS_SECRET")))
	if err != nil {
		return nil, err
	}

	idString, ok := claims["id"].(string)
	if !ok {
		return nil, errNotAuthorized
	}
	id, err := uuid.Parse(idString)
	if err != nil {
		return nil, err
	}

	user, err := h.services.UserCache.CreateOrGet(ctx, id, accessToken)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (h *Handler) getUserFromRequest(c *gin.Context) *model.CachedUser {
	userReq, _ := c.Get("cached-user")

	user, ok := userReq.(model.CachedUser)
	if !ok {
		return nil
	}

	return &user
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrEmptyComment), errors.Is(err, service.ErrCommentTooLong), errors.Is(err, service.ErrParentMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoPermission):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrCommentNotFound), errors.Is(err, service.ErrArticleNotFound):
		status = http.StatusNotFound
	}

	c.JSON(status, dto.NewBasicResponse(false, err.Error()))
}
