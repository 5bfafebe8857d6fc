package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseBuilder_Data(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Data(map[string]string{"id": "tx-1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"id":"tx-1"}` {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Trigger("transactions:changed", map[string]string{"id": "tx-1"}).
		TriggerSuccessNotification("Transaction created").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal([]byte(trigger), &decoded); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	note := decoded["show-notification"]
	if note["type"] != "success" || note["message"] != "Transaction created" || note["duration"] != float64(3000) {
		t.Errorf("show-notification = %v", note)
	}
	if decoded["transactions:changed"]["id"] != "tx-1" {
		t.Errorf("transactions:changed = %v", decoded["transactions:changed"])
	}
}

func TestResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().Status(http.StatusNoContent).Data("ignored").Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body should be empty, got %q", w.Body.String())
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().Data(map[string]int{"months": 6}).Attachment("cash-flow-report-2026-10-16.json").Write(w)

	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="cash-flow-report-2026-10-16.json"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.Contains(w.Body.String(), "\n  \"months\": 6") {
		t.Errorf("attachment should be indented: %q", w.Body.String())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().Data(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *ResponseBuilder
		want    int
	}{
		{"bad request", BadRequestError("Invalid JSON body"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("invalid amount"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("Not found"), http.StatusNotFound},
		{"internal", InternalServerError("Internal server error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.want {
				t.Errorf("Status code = %d, want %d", w.Code, tt.want)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("error body = %q (%v)", w.Body.String(), err)
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
				t.Errorf("missing error notification: %s", w.Header().Get("HX-Trigger"))
			}
		})
	}
}
