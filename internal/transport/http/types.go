package http

import (
	"time"

	"gridgame/internal/model"
	"gridgame/internal/query"
)

// Request bodies. Validator tags are enforced by validationMiddleware,
// grounded on the teacher's core.CreateGameRequest/MoveRequest shape.

type createUserRequest struct {
	Name string  `json:"name" validate:"required,min=1,max=64"`
	Icon *string `json:"icon" validate:"omitempty,max=256"`
}

type createSessionRequest struct {
	HostID   string  `json:"hostId" validate:"required"`
	HostName *string `json:"hostName" validate:"omitempty,min=1,max=64"`
	HostIcon *string `json:"hostIcon" validate:"omitempty,max=256"`
	GameIcon *string `json:"gameIcon" validate:"omitempty,max=256"`
	GameType *string `json:"gameType" validate:"omitempty,oneof=tic_tac_toe connect_four"`
}

type joinSessionRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
}

type submitMoveRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Row      int    `json:"row" validate:"gte=0"`
	Col      int    `json:"col" validate:"gte=0"`
}

// Response DTOs.

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      *string   `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Icon: u.Icon, CreatedAt: u.CreatedAt}
}

// moveResponse is the canonical move shape embedded in a Session.
type moveResponse struct {
	PlayerID string `json:"playerId"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	MoveNo   int    `json:"moveNo"`
}

// sessionResponse is the canonical Session shape from spec §6.
type sessionResponse struct {
	ID          string         `json:"id"`
	Players     []model.Player `json:"players"`
	Status      model.Status   `json:"status"`
	CurrentTurn *string        `json:"currentTurn"`
	Board       model.Board    `json:"board"`
	Moves       []moveResponse `json:"moves"`
	Winner      *string        `json:"winner"`
	Draw        bool           `json:"draw"`
	GameIcon    *string        `json:"gameIcon"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func newSessionResponse(sess *model.Session, moves []model.Move) sessionResponse {
	moveDTOs := make([]moveResponse, 0, len(moves))
	for _, m := range moves {
		moveDTOs = append(moveDTOs, moveResponse{PlayerID: m.PlayerID, Row: m.Row, Col: m.Col, MoveNo: m.MoveNo})
	}
	return sessionResponse{
		ID:          sess.ID,
		Players:     sess.Players(),
		Status:      sess.Status,
		CurrentTurn: sess.CurrentTurn,
		Board:       sess.Board,
		Moves:       moveDTOs,
		Winner:      sess.Winner,
		Draw:        sess.Draw,
		GameIcon:    sess.GameIcon,
		CreatedAt:   sess.CreatedAt,
	}
}

func newSessionDetailResponse(d *query.SessionDetail) sessionResponse {
	return newSessionResponse(&d.Session, d.Moves)
}

// sessionSummaryResponse is the compact projection used by List Sessions.
type sessionSummaryResponse struct {
	ID        string         `json:"id"`
	Host      model.Player   `json:"host"`
	GameIcon  *string        `json:"gameIcon"`
	Status    model.Status   `json:"status"`
	Players   []model.Player `json:"players"`
	CreatedAt time.Time      `json:"createdAt"`
}

func newSessionSummaryResponse(sess model.Session) sessionSummaryResponse {
	return sessionSummaryResponse{
		ID:        sess.ID,
		Host:      sess.Host,
		GameIcon:  sess.GameIcon,
		Status:    sess.Status,
		Players:   sess.Players(),
		CreatedAt: sess.CreatedAt,
	}
}

type listSessionsResponse struct {
	Items      []sessionSummaryResponse `json:"items"`
	NextCursor string                   `json:"nextCursor,omitempty"`
}

func newListSessionsResponse(page *model.SessionPage) listSessionsResponse {
	items := make([]sessionSummaryResponse, 0, len(page.Items))
	for _, sess := range page.Items {
		items = append(items, newSessionSummaryResponse(sess))
	}
	return listSessionsResponse{Items: items, NextCursor: page.NextCursor}
}

type leaderboardEntryResponse struct {
	PlayerID   string   `json:"playerId"`
	Name       string   `json:"name"`
	Wins       int      `json:"wins"`
	Losses     int      `json:"losses"`
	Draws      int      `json:"draws"`
	Efficiency *float64 `json:"efficiency"`
}

func newLeaderboardResponse(entries []model.LeaderboardEntry) []leaderboardEntryResponse {
	out := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntryResponse{
			PlayerID: e.PlayerID, Name: e.Name, Wins: e.Wins, Losses: e.Losses,
			Draws: e.Draws, Efficiency: e.Efficiency,
		})
	}
	return out
}

// errorResponse is the facade's uniform error body per spec §7.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
