package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/internal/pipeline"
	"github.com/On-Jun9/ShutterGate/internal/timewindow"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

const (
	// uploadField carries the files of a validation request.
	uploadField = "image"
	// multipartMemory is kept in memory before parts spill to temp files.
	multipartMemory = 32 << 20
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type APIErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIErrorResponse{Message: message})
}

func writeValidationError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, ValidationError{Field: field, Message: message})
}

// writeConfigError reports *config.ValidationError as a field error and anything
// else as an internal error.
func writeConfigError(w http.ResponseWriter, err error) {
	var validationErr *config.ValidationError
	if errors.As(err, &validationErr) {
		writeValidationError(w, validationErr.Field, validationErr.Message)
		return
	}
	writeAPIError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

type ConfigResponse struct {
	Validation config.Validation `json:"validation"`
	Event      config.Event      `json:"event"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, _ := s.current()
	writeJSON(w, http.StatusOK, ConfigResponse{Validation: cfg.Validation, Event: cfg.Event})
}

type ScheduleErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func (s *Server) handleValidateSchedule(w http.ResponseWriter, r *http.Request) {
	var schedule types.EventSchedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, _ := s.current()
	loc, err := cfg.Location()
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := timewindow.ValidateEventSchedule(schedule, s.now().In(loc))
	if !result.IsValid {
		writeJSON(w, http.StatusBadRequest, ScheduleErrorResponse{Message: result.Errors[0], Errors: result.Errors})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type ValidateResponse struct {
	Message  string               `json:"message"`
	BatchID  string               `json:"batch_id"`
	Accepted []types.AcceptedFile `json:"accepted"`
	Rejected []types.RejectedFile `json:"rejected"`
	Summary  types.RunSummary     `json:"summary"`
}

type BatchRejectedResponse struct {
	Message  string               `json:"message"`
	Error    string               `json:"error"`
	Rejected []types.RejectedFile `json:"rejected"`
}

// handleValidate validates a multipart upload. Files come in the "image" field,
// optional per-file "lastModified" values (Unix milliseconds) in the same order,
// "userName" labels the uploader, and start_date/start_time/end_date/end_time
// override the configured event schedule.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	cfg, p := s.current()

	r.Body = http.MaxBytesReader(w, r.Body, cfg.Web.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			writeAPIError(w, http.StatusBadRequest, capitalize(types.ErrNoFiles.Error()))
			return
		}
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		writeAPIError(w, http.StatusBadRequest, capitalize(types.ErrNoFiles.Error()))
		return
	}

	window, err := s.eventWindow(cfg, r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := readUploads(headers, r.MultipartForm.Value["lastModified"])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	uploader := r.FormValue("userName")
	if uploader == "" {
		uploader = cfg.UploaderLabel
	}

	result, err := p.ValidateBatch(r.Context(), files, window, uploader)
	if err != nil {
		var rejected *types.BatchRejectedError
		var missing *types.MissingInputError
		switch {
		case errors.As(err, &rejected):
			writeJSON(w, http.StatusBadRequest, BatchRejectedResponse{
				Message:  "No files were successfully validated",
				Error:    rejected.Reason,
				Rejected: rejected.Rejected,
			})
		case errors.As(err, &missing), errors.Is(err, types.ErrNoFiles):
			writeAPIError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("File validation failed", err)
			writeJSON(w, http.StatusInternalServerError, APIErrorResponse{Message: "File validation failed", Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{
		Message:  "Validation successful",
		BatchID:  result.ID,
		Accepted: result.Accepted,
		Rejected: result.Rejected,
		Summary:  result.Summary,
	})
}

// eventWindow builds the window from request fields, falling back to the
// configured schedule when start_date is absent.
func (s *Server) eventWindow(cfg *config.Config, r *http.Request) (types.EventWindow, error) {
	schedule := cfg.Event.Schedule
	if r.FormValue("start_date") != "" {
		schedule = types.EventSchedule{
			StartDate: r.FormValue("start_date"),
			StartTime: r.FormValue("start_time"),
			EndDate:   r.FormValue("end_date"),
			EndTime:   r.FormValue("end_time"),
		}
	}
	if schedule.StartDate == "" {
		return types.EventWindow{}, errors.New("event schedule is required")
	}

	loc, err := cfg.Location()
	if err != nil {
		return types.EventWindow{}, err
	}
	return timewindow.EventFromSchedule(schedule, loc)
}

func readUploads(headers []*multipart.FileHeader, lastModified []string) ([]types.RawFile, error) {
	files := make([]types.RawFile, 0, len(headers))
	for i, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}

		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = config.OctetStream
		}

		file := types.RawFile{
			Name:              fh.Filename,
			DeclaredMimeType:  mimeType,
			DeclaredSizeBytes: fh.Size,
			Bytes:             data,
		}
		if i < len(lastModified) && lastModified[i] != "" {
			ms, err := strconv.ParseInt(lastModified[i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid lastModified %q for %s", lastModified[i], fh.Filename)
			}
			t := time.UnixMilli(ms)
			file.LastModified = &t
		}
		files = append(files, file)
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s *Server) broadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.hub.broadcast <- data
}

func (s *Server) broadcastProgress(update pipeline.ProgressUpdate) {
	s.broadcastJSON(update)
}

// Profile handlers

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.ListProfiles()
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		Validation  *config.Validation `json:"validation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeValidationError(w, "name", "profile name is required")
		return
	}

	cfg, _ := s.current()
	profile := config.ProfileFromConfig(cfg, req.Name, req.Description)
	if req.Validation != nil {
		profile.Validation = *req.Validation
	}

	if err := s.profiles.SaveProfile(profile); err != nil {
		writeConfigError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLoadProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.LoadProfile(mux.Vars(r)["name"])
	if err != nil {
		s.writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.DeleteProfile(mux.Vars(r)["name"]); err != nil {
		s.writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleApplyProfile makes the named profile's settings the ones used by
// subsequent validation requests.
func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	profile, err := s.profiles.LoadProfile(name)
	if err != nil {
		s.writeProfileError(w, err)
		return
	}

	cfg, _ := s.current()
	next := *cfg
	profile.Apply(&next)
	if err := s.setConfig(&next); err != nil {
		writeConfigError(w, err)
		return
	}

	s.logger.Info("applied profile", zap.String("profile", name))
	writeJSON(w, http.StatusOK, ConfigResponse{Validation: next.Validation, Event: next.Event})
}

func (s *Server) writeProfileError(w http.ResponseWriter, err error) {
	if errors.Is(err, config.ErrProfileNotFound) {
		writeAPIError(w, http.StatusNotFound, err.Error())
		return
	}
	writeConfigError(w, err)
}
