package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"zigbee-go-setup/internal/actions"
	"zigbee-go-setup/internal/calibration"
	"zigbee-go-setup/internal/setup"
	"zigbee-go-setup/internal/store"
)

func (s *Server) handleAPIListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.svc.Store().ListDevices()
	if err != nil {
		s.logger.Error("list devices", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleAPIRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var dev store.Device
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if dev.Name == "" || dev.Model == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and model are required"})
		return
	}

	if err := s.svc.RegisterDevice(&dev); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusCreated, dev)
}

func (s *Server) handleAPIGetDevice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	dev, err := s.svc.Store().GetDevice(name)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, dev)
}

func (s *Server) handleAPIDeleteDevice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.svc.RemoveDevice(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
			return
		}
		s.logger.Error("delete device", "err", err, "name", name)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIRefreshFirmware(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	version, err := s.svc.RefreshFirmwareVersion(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
			return
		}
		s.logger.Error("refresh firmware", "err", err, "name", name)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "firmware_version": version})
}

// handleAPIStartCalibration kicks off a calibration run in the background and
// returns a job handle. Calibration takes minutes; progress arrives on the
// WebSocket event stream and the final state on the job resource.
func (s *Server) handleAPIStartCalibration(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := s.svc.Store().GetDevice(name); err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}

	var req calibration.Request
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	job := s.jobs.create(name)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Deliberately not tied to the request context: the client disconnects
		// long before the run finishes.
		report, err := s.svc.Calibrate(context.Background(), name, &req)
		s.jobs.finish(job.ID, report, err)
	}()

	// Snapshot under the registry lock; the goroutine may already be mutating
	// the live job.
	s.writeJSON(w, http.StatusAccepted, s.jobs.get(job.ID))
}

func (s *Server) handleAPIGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.get(r.PathValue("id"))
	if job == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleAPIGetCalibration(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec, err := s.svc.Store().GetCalibration(name)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no calibration record"})
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	report, err := s.svc.Report(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
			return
		}
		s.logger.Error("read report", "err", err, "name", name)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAPIApplyActions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var cmd setup.ActionsCommand
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.svc.ApplyActions(r.Context(), name, &cmd); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		default:
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIListModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Catalog().Models())
}

func (s *Server) handleAPIListFamilies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, actions.FamilyNames())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}
