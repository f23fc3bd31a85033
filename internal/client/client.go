// Package client talks to the game server on behalf of an admin dashboard or a
// team screen. Nothing here edits room state locally: every change is a
// request, and the view is rebuilt from the next broadcast snapshot.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"teamquest/internal/event"
	"teamquest/internal/model"
	"time"
)

// JoinRequest is the payload for claiming a team.
type JoinRequest struct {
	Members           []model.Member `json:"members"`
	RoundInstructions map[int]string `json:"roundInstructions,omitempty"`
}

// CreateRoomRequest is the payload for creating a room.
type CreateRoomRequest struct {
	GroupName      string `json:"groupName"`
	TotalTeams     int    `json:"totalTeams"`
	MembersPerTeam int    `json:"membersPerTeam"`
	IndustryType   string `json:"industryType"`
}

// LeaderboardEntry is one ranked team in a mini-game leaderboard.
type LeaderboardEntry struct {
	TeamID int `json:"teamId"`
	Score  int `json:"score"`
	Rank   int `json:"rank"`
}

// Client is the game server API client.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a new API client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken replaces the bearer token used for later requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login authenticates an admin and keeps the returned token.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	body := model.LoginRequest{Username: username, Password: password}
	if err := c.post(ctx, "/v1/auth/login", body, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/v1/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// JoinTeam claims a team and keeps the returned learner token.
func (c *Client) JoinTeam(ctx context.Context, roomID string, teamID int, req JoinRequest) (*model.JoinResponse, error) {
	var resp model.JoinResponse
	if err := c.post(ctx, teamPath(roomID, teamID, "/join"), req, &resp); err != nil {
		return nil, fmt.Errorf("client.JoinTeam: %w", err)
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// CreateRoom creates a room.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*model.Room, error) {
	var room model.Room
	if err := c.post(ctx, "/v1/rooms", req, &room); err != nil {
		return nil, fmt.Errorf("client.CreateRoom: %w", err)
	}
	return &room, nil
}

// ListRooms fetches every room.
func (c *Client) ListRooms(ctx context.Context) ([]*model.Room, error) {
	var resp struct {
		Rooms []*model.Room `json:"rooms"`
	}
	if err := c.get(ctx, "/v1/rooms", &resp); err != nil {
		return nil, fmt.Errorf("client.ListRooms: %w", err)
	}
	return resp.Rooms, nil
}

// GetRoom fetches a single room.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	if err := c.get(ctx, roomPath(roomID, ""), &room); err != nil {
		return nil, fmt.Errorf("client.GetRoom: %w", err)
	}
	return &room, nil
}

// RenameGroup sets a room's display label.
func (c *Client) RenameGroup(ctx context.Context, roomID, groupName string) error {
	body := map[string]string{"groupName": groupName}
	if err := c.doRequest(ctx, http.MethodPut, roomPath(roomID, "/group"), body, nil); err != nil {
		return fmt.Errorf("client.RenameGroup: %w", err)
	}
	return nil
}

// StartMission starts the room's mission clock.
func (c *Client) StartMission(ctx context.Context, roomID string, timerMinutes int) error {
	body := map[string]int{"timerMinutes": timerMinutes}
	if err := c.post(ctx, roomPath(roomID, "/mission/start"), body, nil); err != nil {
		return fmt.Errorf("client.StartMission: %w", err)
	}
	return nil
}

// ResetRoom wipes a room's teams and progress.
func (c *Client) ResetRoom(ctx context.Context, roomID string) error {
	if err := c.post(ctx, roomPath(roomID, "/reset"), nil, nil); err != nil {
		return fmt.Errorf("client.ResetRoom: %w", err)
	}
	return nil
}

// DeleteRoom removes a room.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, roomPath(roomID, ""), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteRoom: %w", err)
	}
	return nil
}

// UpdateRound moves a team to round. The server clamps it to the playable range.
func (c *Client) UpdateRound(ctx context.Context, roomID string, teamID, round int) (*model.Team, error) {
	return c.teamCall(ctx, "client.UpdateRound", http.MethodPut, teamPath(roomID, teamID, "/round"), map[string]int{"round": round})
}

// SetRoundInstruction overrides one round's instructions; empty text restores the default.
func (c *Client) SetRoundInstruction(ctx context.Context, roomID string, teamID, round int, text string) (*model.Team, error) {
	path := teamPath(roomID, teamID, "/instructions/"+strconv.Itoa(round))
	return c.teamCall(ctx, "client.SetRoundInstruction", http.MethodPut, path, map[string]string{"text": text})
}

// RecordHelp records one use of the help button.
func (c *Client) RecordHelp(ctx context.Context, roomID string, teamID, round int) (*model.Team, error) {
	return c.teamCall(ctx, "client.RecordHelp", http.MethodPost, teamPath(roomID, teamID, "/help"), map[string]int{"round": round})
}

// RecordRoundTime stores the seconds spent on a round.
func (c *Client) RecordRoundTime(ctx context.Context, roomID string, teamID, round, seconds int) (*model.Team, error) {
	path := teamPath(roomID, teamID, "/rounds/"+strconv.Itoa(round)+"/time")
	return c.teamCall(ctx, "client.RecordRoundTime", http.MethodPut, path, map[string]int{"seconds": seconds})
}

// AddBonusTime adds earned bonus seconds.
func (c *Client) AddBonusTime(ctx context.Context, roomID string, teamID, seconds int) (*model.Team, error) {
	return c.teamCall(ctx, "client.AddBonusTime", http.MethodPost, teamPath(roomID, teamID, "/bonus"), map[string]int{"seconds": seconds})
}

// MarkMissionClear records that the team finished.
func (c *Client) MarkMissionClear(ctx context.Context, roomID string, teamID int) (*model.Team, error) {
	return c.teamCall(ctx, "client.MarkMissionClear", http.MethodPost, teamPath(roomID, teamID, "/clear"), nil)
}

// RecordMiniGame submits a mini-game outcome. Cancelled outcomes are accepted and ignored.
func (c *Client) RecordMiniGame(ctx context.Context, roomID string, teamID int, game model.MiniGame, outcome model.MiniGameOutcome) (*model.Team, error) {
	path := teamPath(roomID, teamID, "/minigames/"+url.PathEscape(string(game)))
	return c.teamCall(ctx, "client.RecordMiniGame", http.MethodPost, path, outcome)
}

// Leaderboard fetches the top teams for a mini-game.
func (c *Client) Leaderboard(ctx context.Context, roomID string, game model.MiniGame, top int) ([]LeaderboardEntry, error) {
	params := url.Values{}
	params.Set("top", strconv.Itoa(top))

	var resp struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	path := roomPath(roomID, "/minigames/"+url.PathEscape(string(game))+"/leaderboard?"+params.Encode())
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("client.Leaderboard: %w", err)
	}
	return resp.Leaderboard, nil
}

// ToggleTeamEvent switches an event on or off for one team.
func (c *Client) ToggleTeamEvent(ctx context.Context, roomID string, teamID int, typ model.EventType, minutes int) (*model.TeamEvent, error) {
	var resp struct {
		CurrentEvent *model.TeamEvent `json:"currentEvent"`
	}
	body := map[string]interface{}{"eventType": typ, "minutes": minutes}
	if err := c.post(ctx, teamPath(roomID, teamID, "/event"), body, &resp); err != nil {
		return nil, fmt.Errorf("client.ToggleTeamEvent: %w", err)
	}
	return resp.CurrentEvent, nil
}

// ToggleAllTeamsEvent switches an event on or off for every team of a room.
func (c *Client) ToggleAllTeamsEvent(ctx context.Context, roomID string, typ model.EventType, minutes int) (*model.TeamEvent, error) {
	var resp struct {
		CurrentEvent *model.TeamEvent `json:"currentEvent"`
	}
	body := map[string]interface{}{"eventType": typ, "minutes": minutes}
	if err := c.post(ctx, roomPath(roomID, "/events"), body, &resp); err != nil {
		return nil, fmt.Errorf("client.ToggleAllTeamsEvent: %w", err)
	}
	return resp.CurrentEvent, nil
}

// DismissEvent asks the server to end an expired event.
func (c *Client) DismissEvent(ctx context.Context, roomID string, teamID int) error {
	if err := c.post(ctx, teamPath(roomID, teamID, "/event/dismiss"), nil, nil); err != nil {
		return fmt.Errorf("client.DismissEvent: %w", err)
	}
	return nil
}

// ReleaseEvent ends a team's event regardless of its timer.
func (c *Client) ReleaseEvent(ctx context.Context, roomID string, teamID int) error {
	if err := c.doRequest(ctx, http.MethodDelete, teamPath(roomID, teamID, "/event"), nil, nil); err != nil {
		return fmt.Errorf("client.ReleaseEvent: %w", err)
	}
	return nil
}

// EventStatus fetches the server's view of a team's event.
func (c *Client) EventStatus(ctx context.Context, roomID string, teamID int) (*event.Status, error) {
	var st event.Status
	if err := c.get(ctx, teamPath(roomID, teamID, "/event"), &st); err != nil {
		return nil, fmt.Errorf("client.EventStatus: %w", err)
	}
	return &st, nil
}

// VerifyPlant submits a photo for verification. A rejected photo returns the
// judgement together with an error matching ErrRejected.
func (c *Client) VerifyPlant(ctx context.Context, roomID string, teamID int, req model.PlantCheckRequest) (*model.Judgement, error) {
	var res model.Judgement
	err := c.judge(ctx, roomID, teamID, "plant", req, &res)
	return &res, wrap("client.VerifyPlant", err)
}

// EmpathyChat sends the conversation so far and returns the scored reply.
func (c *Client) EmpathyChat(ctx context.Context, roomID string, teamID int, req model.EmpathyChatRequest) (*model.ChatJudgement, error) {
	var res model.ChatJudgement
	if err := c.judge(ctx, roomID, teamID, "empathy", req, &res); err != nil {
		return nil, fmt.Errorf("client.EmpathyChat: %w", err)
	}
	return &res, nil
}

// ValidateReport checks free-text fields.
func (c *Client) ValidateReport(ctx context.Context, roomID string, teamID int, req model.ReportCheckRequest) (*model.Feedback, error) {
	var res model.Feedback
	err := c.judge(ctx, roomID, teamID, "report", req, &res)
	return &res, wrap("client.ValidateReport", err)
}

// GenerateInfographic asks for an illustration.
func (c *Client) GenerateInfographic(ctx context.Context, roomID string, teamID int, req model.InfographicRequest) (*model.ImageResult, error) {
	var res model.ImageResult
	err := c.judge(ctx, roomID, teamID, "infographic", req, &res)
	return &res, wrap("client.GenerateInfographic", err)
}

// judge posts to a judge endpoint. Verdict bodies are decoded for 422 and 502
// too, since they carry the message to show.
func (c *Client) judge(ctx context.Context, roomID string, teamID int, kind string, body, out any) error {
	err := c.post(ctx, teamPath(roomID, teamID, "/judge/"+kind), body, out)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.body != nil {
		_ = json.Unmarshal(httpErr.body, out)
	}
	return err
}

func (c *Client) teamCall(ctx context.Context, op, method, path string, body any) (*model.Team, error) {
	var team *model.Team
	if err := c.doRequest(ctx, method, path, body, &team); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return team, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error, body: respBody}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(respBody)), body: respBody}
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func roomPath(roomID, suffix string) string {
	return "/v1/rooms/" + url.PathEscape(roomID) + suffix
}

func teamPath(roomID string, teamID int, suffix string) string {
	return roomPath(roomID, "/teams/"+strconv.Itoa(teamID)+suffix)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
