package http

import (
	"context"
	"net/http"
	"time"

	"billbook/internal/core"
	"billbook/internal/log"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("API is running"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.bills.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.List(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if bills == nil {
		bills = []core.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBill(w, r)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	id, err := s.bills.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentBill).InfoContext(r.Context(), "Bill created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithBill(id, in.Date.String(), in.CustomerName, in.Product, in.Quantity, core.TotalPrice(in.Quantity, in.BasePrice)).
			ToSlice()...)
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	in, err := decodeBill(w, r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}

	if err := s.bills.Update(r.Context(), id, in); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Updated successfully"})
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}

	if err := s.bills.Remove(r.Context(), id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted successfully"})
}

// fail logs err at a level matching its status and writes the JSON error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errType := classify(err)
	log.FromContext(r.Context()).WithComponent(log.ComponentBill).LogAt(r.Context(), log.StatusLevel(status),
		"Bill request failed",
		log.NewFields().WithOperation(op).WithError(err, errType).ToSlice()...)
	writeError(w, status, err.Error())
}
