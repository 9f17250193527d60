package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chat-server/internal/auth"
	"chat-server/internal/models"
	"chat-server/internal/services"
	"chat-server/pkg/logger"
)

type ChannelHandlers struct {
	channelService *services.ChannelService
	authService    *auth.Service
	historyLimit   int
}

func NewChannelHandlers(channelService *services.ChannelService, authService *auth.Service, historyLimit int) *ChannelHandlers {
	return &ChannelHandlers{
		channelService: channelService,
		authService:    authService,
		historyLimit:   historyLimit,
	}
}

func (h *ChannelHandlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channels, err := h.channelService.ListChannels(r.Context(), user.ID)
	if err != nil {
		logger.Error("List channels error: %v", err)
		writeError(w, http.StatusInternalServerError, "server error fetching channels")
		return
	}
	if channels == nil {
		channels = []*models.Channel{}
	}

	writeJSON(w, http.StatusOK, channels)
}

func (h *ChannelHandlers) CreateChannel(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	channel, err := h.channelService.CreateChannel(r.Context(), &req, user.ID)
	if err != nil {
		logger.Error("Create channel error: %v", err)
		writeError(w, channelErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, channel)
}

func (h *ChannelHandlers) JoinChannel(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channelID, err := channelIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}

	channel, err := h.channelService.JoinChannel(r.Context(), channelID, user.ID)
	if err != nil {
		logger.Error("Join channel error: %v", err)
		writeError(w, channelErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, channel)
}

func (h *ChannelHandlers) LeaveChannel(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channelID, err := channelIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}

	channel, err := h.channelService.LeaveChannel(r.Context(), channelID, user.ID)
	if err != nil {
		logger.Error("Leave channel error: %v", err)
		writeError(w, channelErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, channel)
}

func (h *ChannelHandlers) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channelID, err := channelIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}

	var req models.UpdateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	channel, err := h.channelService.UpdateChannel(r.Context(), channelID, user.ID, &req)
	if err != nil {
		logger.Error("Update channel error: %v", err)
		writeError(w, channelErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, channel)
}

func (h *ChannelHandlers) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channelID, err := channelIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}

	if err := h.channelService.DeleteChannel(r.Context(), channelID, user.ID); err != nil {
		logger.Error("Delete channel error: %v", err)
		writeError(w, channelErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "channel deleted successfully",
		"channelId": channelID,
	})
}

func (h *ChannelHandlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	channelID, err := channelIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}

	messages, err := h.channelService.GetMessages(r.Context(), channelID, user.ID, h.historyLimit)
	if err != nil {
		logger.Error("Get messages error: %v", err)
		writeError(w, channelErrorStatus(err), err.Error())
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *ChannelHandlers) getUserFromRequest(r *http.Request) (*models.User, error) {
	return h.authService.Authenticate(r.Context(), bearerToken(r))
}

func channelIDFromPath(r *http.Request) (string, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", fmt.Errorf("invalid path")
	}
	return parts[2], nil
}

func channelErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPrivateChannel),
		errors.Is(err, services.ErrNotMember),
		errors.Is(err, services.ErrNotCreator):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrChannelExists),
		errors.Is(err, services.ErrAlreadyMember):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
