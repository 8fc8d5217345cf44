package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/auth"
	"github.com/gatismeikulis/card-game-app/internal/game"
	"github.com/gatismeikulis/card-game-app/internal/store"
	"github.com/gatismeikulis/card-game-app/internal/table"
)

// bearerToken pulls the token from the Authorization header, falling
// back to the token query parameter for WebSocket clients that cannot
// set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

type authedHandler func(w http.ResponseWriter, r *http.Request, identity auth.Identity)

func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.verifier.Verify(r.Context(), bearerToken(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, identity)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, reason, message := apperr.Public(err)
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		s.log.Error("request failed", "err", err)
	}
	writeJSON(w, apperr.HTTPStatus(err), map[string]any{
		"code":    code,
		"reason":  reason,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GET /tables?status=a,b&game_name=...&limit=&offset=
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	filter := store.TableFilter{GameName: r.URL.Query().Get("game_name")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := table.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				s.writeError(w, err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	filter.Limit = queryInt(r, "limit")
	filter.Offset = queryInt(r, "offset")

	tables, err := s.manager.FindTables(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(tables))
	for _, tbl := range tables {
		views = append(views, tbl.PublicView(identity.UserID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": views})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

type createTableRequest struct {
	GameName    string         `json:"game_name"`
	GameConfig  map[string]any `json:"game_config"`
	TableConfig map[string]any `json:"table_config"`
}

// POST /tables
func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Parse("payload", "could not decode table config"))
		return
	}
	tbl, err := s.manager.AddTable(r.Context(), identity.UserID, req.GameName, req.GameConfig, req.TableConfig)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/tables/"+tbl.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"table_id": tbl.ID})
}

// GET /tables/{id}
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	tbl, err := s.manager.GetTable(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": tbl.PublicView(identity.UserID)})
}

// DELETE /tables/{id}
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	if err := s.manager.RemoveTable(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /tables/{id}/{action} — the REST twin of the WebSocket actions.
// Successful mutations are also fanned out to connected observers.
func (s *Server) handleTableAction(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	tableID := r.PathValue("id")
	ctx := r.Context()

	body, err := readBody(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var result actionResult
	switch r.PathValue("action") {
	case "join":
		data, err := decodeRequestData[joinData](body)
		if err != nil {
			s.writeError(w, apperr.Parse("payload", "could not decode join data"))
			return
		}
		result.tbl, result.err = s.manager.JoinTable(ctx, tableID, identity.UserID, identity.ScreenName, data.PreferredSeat)
	case "leave":
		result.tbl, result.err = s.manager.LeaveTable(ctx, tableID, identity.UserID)
	case "add-bot":
		data, err := decodeRequestData[addBotData](body)
		if err != nil {
			s.writeError(w, apperr.Parse("payload", "could not decode add-bot data"))
			return
		}
		result.tbl, result.err = s.manager.AddBotPlayer(ctx, tableID, data.BotKind, identity.UserID, data.PreferredSeat)
	case "remove-bot":
		data, err := decodeRequestData[removeBotData](body)
		if err != nil {
			s.writeError(w, apperr.Parse("payload", "could not decode remove-bot data"))
			return
		}
		result.tbl, result.err = s.manager.RemoveBotPlayer(ctx, tableID, data.SeatNumber, identity.UserID)
	case "start-game":
		result.tbl, result.events, result.err = s.manager.StartGame(ctx, tableID, identity.UserID)
	case "take-turn":
		data, err := decodeRequestData[takeTurnData](body)
		if err != nil {
			s.writeError(w, apperr.Parse("payload", "could not decode turn data"))
			return
		}
		result.tbl, result.events, result.err = s.manager.TakeRegularTurn(ctx, tableID, identity.UserID, data.CommandType, data.Params)
	case "take-automatic-turn":
		result.tbl, result.events, result.err = s.manager.TakeAutomaticTurn(ctx, tableID, identity.UserID)
	case "cancel-game":
		result.tbl, result.events, result.err = s.manager.CancelGame(ctx, tableID, identity.UserID)
	case "abort-game":
		data, err := decodeRequestData[abortData](body)
		if err != nil {
			s.writeError(w, apperr.Parse("payload", "could not decode abort data"))
			return
		}
		result.tbl, result.events, result.err = s.manager.AbortGame(ctx, tableID, identity.UserID, data.BlamedSeat)
	default:
		s.writeError(w, apperr.NotFound("unknown_action"))
		return
	}

	if result.err != nil {
		s.writeError(w, result.err)
		return
	}
	s.broadcastUpdate(tableID, result.tbl, result.events)

	eventTypes := make([]string, 0, len(result.events))
	for _, ev := range result.events {
		eventTypes = append(eventTypes, ev.EventType())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":  result.tbl.PublicView(identity.UserID),
		"events": eventTypes,
	})
}

type actionResult struct {
	tbl    *table.Table
	events []game.Event
	err    error
}

func readBody(r *http.Request) (json.RawMessage, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, apperr.Parse("payload", "could not decode request body")
	}
	return raw, nil
}

// GET /tables/{id}/history?event=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	tableID := r.PathValue("id")
	eventNumber, err := strconv.ParseInt(r.URL.Query().Get("event"), 10, 64)
	if err != nil {
		s.writeError(w, apperr.Parse("event_number_invalid", "event must be an integer"))
		return
	}

	state, err := s.manager.GetGameStateSnapshot(r.Context(), tableID, eventNumber)
	if err != nil {
		s.writeError(w, err)
		return
	}

	seatNumber := 0
	if tbl, err := s.manager.GetTable(r.Context(), tableID); err == nil {
		if player, seated := tbl.PlayerByUserID(identity.UserID); seated {
			seatNumber = player.SeatNumber
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_number": eventNumber,
		"game_state":   state.Public(seatNumber),
	})
}
