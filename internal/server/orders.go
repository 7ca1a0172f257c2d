package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// multipart parts above this size are spooled to disk by the stdlib parser
const multipartMemory = 8 << 20

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
			writeDetail(w, http.StatusRequestEntityTooLarge, "File too large", msgRequestError)
			return
		}
		validationFailed(w, "file: field required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		validationFailed(w, "file: field required")
		return
	}
	defer file.Close()

	if err := order.ValidateUpload(header.Filename); err != nil {
		s.writeError(w, r, err)
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("error reading uploaded file", "filename", header.Filename, "error", err)
		writeDetail(w, http.StatusBadRequest, detailUnreadable, msgRequestError)
		return
	}

	req := order.UploadRequest{Filename: header.Filename, Content: content}
	if id, ok := common.UserIDFromContext(r.Context()); ok {
		req.UserID = &id
	}
	o, err := s.orders.CreateFromPDF(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func queryInt(r *http.Request, name string, def int) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	skip, okSkip := queryInt(r, "skip", 0)
	limit, okLimit := queryInt(r, "limit", order.DefaultLimit)
	var bad []string
	if !okSkip {
		bad = append(bad, "skip: must be a valid integer")
	}
	if !okLimit {
		bad = append(bad, "limit: must be a valid integer")
	}
	if len(bad) > 0 {
		validationFailed(w, bad...)
		return
	}

	orders, err := s.orders.List(r.Context(), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		validationFailed(w, "order_id: must be a valid integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := s.orders.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// orderUpdateRequest mirrors entity.OrderUpdate with the date still in wire form.
type orderUpdateRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DateOfBirth *string `json:"date_of_birth"`
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req orderUpdateRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, 1<<20), orderUpdateReqSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	upd := entity.OrderUpdate{FirstName: req.FirstName, LastName: req.LastName}
	if req.DateOfBirth != nil {
		d, err := entity.ParseDate(*req.DateOfBirth)
		if err != nil {
			validationFailed(w, "date_of_birth: must be a date in YYYY-MM-DD format")
			return
		}
		upd.DateOfBirth = &d
	}

	o, err := s.orders.Update(r.Context(), id, upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := s.orders.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportOrders serves an XLSX workbook. Optional from/to are YYYY-MM-DD.
func (s *Server) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	var bad []string
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &from}, {"to", &to}} {
		v := strings.TrimSpace(r.URL.Query().Get(p.name))
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			bad = append(bad, p.name+": must be a date in YYYY-MM-DD format")
			continue
		}
		*p.dst = &t
	}
	if len(bad) > 0 {
		validationFailed(w, bad...)
		return
	}

	xlsx, err := s.export.ExportOrdersXLSX(r.Context(), from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="orders.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(xlsx)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}
