package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/live"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/metrics"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/queue"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/voting"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VotingService interface {
	SubmitVote(ctx context.Context, req voting.VoteRequest) (*domain.Post, error)
	GetResults(ctx context.Context, postID string) (*voting.Results, error)
	CreatePost(ctx context.Context, in domain.NewPost) (*domain.Post, error)
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	DeletePost(ctx context.Context, postID, actor string) error
	CreateUser(ctx context.Context, in voting.NewUser) (*domain.User, error)
	DeleteUser(ctx context.Context, userID, actor string) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Voting   VotingService
	Events   queue.Publisher
	Exchange string
	// Checks are pinged by /healthz, keyed by dependency name.
	Checks map[string]Pinger
	Hub    *live.Hub
}

func NewHandler(svc VotingService, pub queue.Publisher, exchange string) *Handler {
	if pub == nil {
		pub = queue.NewNoop()
	}
	return &Handler{Voting: svc, Events: pub, Exchange: exchange, Checks: map[string]Pinger{}, Hub: live.NewHub()}
}

type errorResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.WithDD(c.Request.Context(), log.L()).Error("request failed",
			zap.String("route", c.FullPath()), zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
		msg = "internal error"
	}
	c.JSON(code, errorResp{Success: false, Message: msg})
}

func badJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, errorResp{Success: false, Message: "invalid json"})
}

// flexString takes a JSON string or number; clients send option indexes both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt takes a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type voteReq struct {
	PostID        string     `json:"postId"`
	UserID        string     `json:"userId"`
	Option        flexString `json:"option"`
	Response      string     `json:"response"`
	Rating        *flexInt   `json:"rating"`
	QuestionIndex int        `json:"questionIndex"`
}

type okResp struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Vote godoc
// @Summary Vote on a poll or answer a survey question
// @Tags voting
// @Accept json
// @Produce json
// @Param postId path string true "post id"
// @Param payload body voteReq true "option for polls and multiple-choice, response or rating otherwise"
// @Success 200 {object} okResp
// @Failure 400 {object} errorResp
// @Failure 404 {object} errorResp
// @Failure 429 {object} errorResp
// @Router /post/{postId}/vote [post]
func (h *Handler) Vote(c *gin.Context) {
	var in voteReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	if id := c.Param("postId"); id != "" {
		in.PostID = id
	}
	if uid := c.GetString(uidKey); uid != "" {
		in.UserID = uid
	}
	req := voting.VoteRequest{
		PostID:        in.PostID,
		UserID:        in.UserID,
		Option:        string(in.Option),
		Response:      in.Response,
		QuestionIndex: in.QuestionIndex,
	}
	if in.Rating != nil {
		r := int(*in.Rating)
		req.Rating = &r
	}

	p, err := h.Voting.SubmitVote(c.Request.Context(), req)
	if err != nil {
		metrics.VotesTotal.WithLabelValues(postTypeLabel(p), voteResult(err)).Inc()
		fail(c, err)
		return
	}
	metrics.VotesTotal.WithLabelValues(string(p.Type), "ok").Inc()
	h.Hub.Publish(p.ID.Hex())

	queue.Fire(h.Events, h.Exchange, queue.KeyVoteCast,
		queue.NewVoteCast(p, req.UserID, req.QuestionIndex, time.Now()),
		c.GetString(requestIDKey))

	c.JSON(http.StatusOK, okResp{Success: true, Message: "vote recorded"})
}

func postTypeLabel(p *domain.Post) string {
	if p == nil {
		return "unknown"
	}
	return string(p.Type)
}

func voteResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrInvalidOperation):
		return "rejected"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}

type resultsReq struct {
	PostID string `json:"postId"`
}

type resultsResp struct {
	Success bool            `json:"success"`
	Results *voting.Results `json:"results"`
}

// Results godoc
// @Summary Aggregated results of a poll or survey
// @Tags voting
// @Produce json
// @Param postId path string true "post id"
// @Success 200 {object} resultsResp
// @Failure 400 {object} errorResp
// @Failure 404 {object} errorResp
// @Router /post/{postId}/results [get]
func (h *Handler) Results(c *gin.Context) {
	id := c.Param("postId")
	if id == "" {
		var in resultsReq
		if err := c.ShouldBindJSON(&in); err != nil {
			badJSON(c)
			return
		}
		id = in.PostID
	}
	res, err := h.Voting.GetResults(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultsResp{Success: true, Results: res})
}

type postResp struct {
	Success bool         `json:"success"`
	Post    *domain.Post `json:"post"`
}

// CreatePost godoc
// @Summary Create a post; polls and surveys carry their voting definition
// @Tags posts
// @Accept json
// @Produce json
// @Param payload body domain.NewPost true "post"
// @Success 201 {object} postResp
// @Failure 400 {object} errorResp
// @Router /post [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var in domain.NewPost
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	if uid := c.GetString(uidKey); uid != "" {
		in.CreatedBy = uid
	}
	p, err := h.Voting.CreatePost(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, postResp{Success: true, Post: p})
}

// GetPost godoc
// @Summary Get a post with its current status
// @Tags posts
// @Produce json
// @Param postId path string true "post id"
// @Success 200 {object} postResp
// @Failure 404 {object} errorResp
// @Router /post/{postId} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.Voting.GetPost(c.Request.Context(), c.Param("postId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postResp{Success: true, Post: p})
}

// DeletePost godoc
// @Summary Delete a post together with its votes
// @Tags posts
// @Produce json
// @Param postId path string true "post id"
// @Success 200 {object} okResp
// @Failure 403 {object} errorResp
// @Failure 404 {object} errorResp
// @Router /post/{postId} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.Voting.DeletePost(c.Request.Context(), c.Param("postId"), c.GetString(uidKey)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{Success: true, Message: "post deleted"})
}

type userResp struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
}

// CreateUser godoc
// @Summary Register a username used to attribute votes
// @Tags users
// @Accept json
// @Produce json
// @Param payload body voting.NewUser true "user"
// @Success 201 {object} userResp
// @Failure 400 {object} errorResp
// @Failure 409 {object} errorResp
// @Router /users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var in voting.NewUser
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	u, err := h.Voting.CreateUser(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, userResp{Success: true, User: u})
}

type purgeResp struct {
	Success      bool  `json:"success"`
	PostsTouched int64 `json:"postsTouched"`
}

// DeleteUser godoc
// @Summary Delete a user and remove their votes, responses and ratings
// @Tags users
// @Produce json
// @Param userId path string true "user id"
// @Success 200 {object} purgeResp
// @Failure 403 {object} errorResp
// @Failure 404 {object} errorResp
// @Router /users/{userId} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	n, err := h.Voting.DeleteUser(c.Request.Context(), c.Param("userId"), c.GetString(uidKey))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, purgeResp{Success: true, PostsTouched: n})
}

// Healthz godoc
// @Summary Liveness and dependency check
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	out := gin.H{"status": "ok"}
	code := http.StatusOK
	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			out[name] = err.Error()
			out["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	c.JSON(code, out)
}
