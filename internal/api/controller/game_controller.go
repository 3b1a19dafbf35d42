package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"ctchen222/Battleship/internal/api/models"
	"ctchen222/Battleship/internal/api/response"
	"ctchen222/Battleship/internal/api/service"

	"github.com/gin-gonic/gin"
)

// GameController serves live counts, match history and player profiles.
type GameController struct {
	gameService service.GameService
}

// NewGameController creates a new GameController.
func NewGameController(gameService service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

// Stats handles GET /api/stats.
func (gc *GameController) Stats(c *gin.Context) {
	response.SuccessResponse(c, gc.gameService.Stats())
}

// Matches handles GET /api/matches?limit=N.
func (gc *GameController) Matches(c *gin.Context) {
	var q models.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	list, err := gc.gameService.RecentMatches(c.Request.Context(), q.Limit)
	if err != nil {
		gc.fail(c, "Failed to list matches", err)
		return
	}
	response.SuccessResponseList(c, list)
}

// Leaderboard handles GET /api/leaderboard?limit=N.
func (gc *GameController) Leaderboard(c *gin.Context) {
	var q models.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	list, err := gc.gameService.Leaderboard(c.Request.Context(), q.Limit)
	if err != nil {
		gc.fail(c, "Failed to read leaderboard", err)
		return
	}
	response.SuccessResponseList(c, list)
}

// Player handles GET /api/players/:name.
func (gc *GameController) Player(c *gin.Context) {
	profile, err := gc.gameService.Player(c.Request.Context(), c.Param("name"))
	if err != nil {
		gc.fail(c, "Failed to load player", err)
		return
	}
	response.SuccessResponse(c, profile)
}

func (gc *GameController) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrUnavailable):
		response.ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrInvalidUsername):
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), msg, "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, msg)
	}
}
