package riskassessment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bhis/bhis/internal/platform/auth"
	"github.com/bhis/bhis/internal/platform/document"
	"github.com/bhis/bhis/internal/platform/export"
)

func newTestHandler() (*Handler, *Service, *mockExporter, *echo.Echo) {
	svc, _, exp := newTestService()
	return NewHandler(svc), svc, exp, echo.New()
}

func jsonRequest(e *echo.Echo, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_Preview(t *testing.T) {
	h, _, _, e := newTestHandler()
	c, rec := jsonRequest(e, http.MethodPost, "/api/risk-assessments/preview", sampleForm())

	if err := h.Preview(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Sections) != 8 || doc.Subject != "Maria Santos" {
		t.Errorf("unexpected document: %d sections, subject %q", len(doc.Sections), doc.Subject)
	}
}

func TestHandler_Preview_InvalidAnswer(t *testing.T) {
	h, _, _, e := newTestHandler()
	body := `{"red_flags":{"chest_pain":"sometimes"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/risk-assessments/preview", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if code := httpCode(t, h.Preview(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Export(t *testing.T) {
	h, _, _, e := newTestHandler()
	c, rec := jsonRequest(e, http.MethodPost, "/api/risk-assessments/export", sampleForm())

	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != export.ContentTypePDF {
		t.Errorf("expected pdf content type, got %s", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != `attachment; filename="PhilPEN_Maria_Santos.pdf"` {
		t.Errorf("unexpected disposition %s", cd)
	}
	if rec.Header().Get("X-Page-Count") != "4" {
		t.Errorf("expected page count header 4, got %s", rec.Header().Get("X-Page-Count"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("expected PDF body")
	}
}

func TestHandler_Export_RealPipeline(t *testing.T) {
	svc := NewService(newMockRepo(), export.NewExporter(export.Options{}), RenderOptions{}, zerolog.Nop())
	h := NewHandler(svc)
	e := echo.New()
	c, rec := jsonRequest(e, http.MethodPost, "/api/risk-assessments/export", Form{})

	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "PhilPEN_FORM.pdf") {
		t.Errorf("blank name should export as FORM, got %s", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("expected a PDF document")
	}
}

func TestHandler_Export_PipelineFailure(t *testing.T) {
	h, _, exp, e := newTestHandler()
	exp.err = &export.ExportError{Stage: export.StageStyle, Err: errors.New("unknown style token")}
	c, rec := jsonRequest(e, http.MethodPost, "/api/risk-assessments/export", sampleForm())

	if code := httpCode(t, h.Export(c)); code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", code)
	}
	if rec.Body.Len() != 0 {
		t.Error("no partial artifact may be written")
	}
}

func TestHandler_Export_Canceled(t *testing.T) {
	h, _, exp, e := newTestHandler()
	exp.err = &export.ExportError{Stage: export.StageCanceled, Err: context.Canceled}
	c, _ := jsonRequest(e, http.MethodPost, "/api/risk-assessments/export", sampleForm())

	if code := httpCode(t, h.Export(c)); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
}

func TestHandler_CreateGetUpdate(t *testing.T) {
	h, _, _, e := newTestHandler()
	userID := uuid.New()

	c, rec := jsonRequest(e, http.MethodPost, "/api/risk-assessments", map[string]interface{}{"form": sampleForm()})
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID.String())))
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var created struct {
		Assessment Assessment `json:"assessment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Assessment.CreatedBy == nil || *created.Assessment.CreatedBy != userID {
		t.Errorf("expected created_by %s, got %v", userID, created.Assessment.CreatedBy)
	}
	id := created.Assessment.ID.String()

	c, rec = jsonRequest(e, http.MethodGet, "/api/risk-assessments/"+id, nil)
	if err := h.Get(withID(c, id)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Maria Santos") {
		t.Errorf("expected stored form in response, got %s", rec.Body.String())
	}

	f := sampleForm()
	f.Management.Remarks = "Refer to RHU"
	c, rec = jsonRequest(e, http.MethodPut, "/api/risk-assessments/"+id, map[string]interface{}{"form": f})
	if err := h.Update(withID(c, id)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Refer to RHU") {
		t.Errorf("expected updated remarks, got %s", rec.Body.String())
	}

	c, rec = jsonRequest(e, http.MethodGet, "/api/risk-assessments/"+id+"/export", nil)
	if err := h.ExportSaved(withID(c, id)); err != nil {
		t.Fatalf("ExportSaved: %v", err)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("expected PDF body")
	}
}

func TestHandler_NotFoundAndBadID(t *testing.T) {
	h, _, _, e := newTestHandler()

	c, _ := jsonRequest(e, http.MethodGet, "/api/risk-assessments/nope", nil)
	if code := httpCode(t, h.Get(withID(c, "nope"))); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}

	id := uuid.New().String()
	c, _ = jsonRequest(e, http.MethodGet, "/api/risk-assessments/"+id, nil)
	if code := httpCode(t, h.Get(withID(c, id))); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}

	c, _ = jsonRequest(e, http.MethodGet, "/api/risk-assessments/"+id+"/export", nil)
	if code := httpCode(t, h.ExportSaved(withID(c, id))); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_ListByPatient(t *testing.T) {
	h, svc, _, e := newTestHandler()
	pid := uuid.New()
	for i := 0; i < 3; i++ {
		_ = svc.Create(context.Background(), &Assessment{PatientID: &pid, Form: sampleForm()})
	}

	target := "/api/patients/" + pid.String() + "/risk-assessments?limit=2"
	c, rec := jsonRequest(e, http.MethodGet, target, nil)
	if err := h.ListByPatient(withID(c, pid.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data    []Assessment `json:"data"`
		Total   int          `json:"total"`
		HasMore bool         `json:"has_more"`
		Links   struct {
			Next string `json:"next"`
		} `json:"links"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || len(resp.Data) != 2 || !resp.HasMore {
		t.Errorf("unexpected page: %+v", resp)
	}
	want := "/api/patients/" + pid.String() + "/risk-assessments?offset=2&limit=2"
	if resp.Links.Next != want {
		t.Errorf("expected next link %s, got %s", want, resp.Links.Next)
	}
}

func TestHandler_Prefill(t *testing.T) {
	h, svc, _, e := newTestHandler()
	pid := uuid.New()
	svc.SetPatientProfiles(&mockProfiles{info: map[uuid.UUID]PatientInfo{pid: {Name: "Ana Reyes"}}})

	c, rec := jsonRequest(e, http.MethodGet, "/api/patients/"+pid.String()+"/risk-assessments/prefill", nil)
	if err := h.Prefill(withID(c, pid.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Ana Reyes") {
		t.Errorf("expected patient name in prefill, got %s", rec.Body.String())
	}

	other := uuid.New().String()
	c, _ = jsonRequest(e, http.MethodGet, "/api/patients/"+other+"/risk-assessments/prefill", nil)
	if code := httpCode(t, h.Prefill(withID(c, other))); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}
