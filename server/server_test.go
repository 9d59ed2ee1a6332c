package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"

	"github.com/lucasjlepore/logalign/config"
	"github.com/lucasjlepore/logalign/pipeline"
	"github.com/lucasjlepore/logalign/store"
)

func testServerConfig() config.Config {
	f := config.Default()
	f.InertialSensors = []string{"ACC", "GYRO"}
	f.Freq = 4
	f.Timezone = "UTC"
	return config.Config{File: f, Port: 0}
}

func uploadLog() string {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		ts := 1700000000.0 + float64(i)*0.5
		fmt.Fprintf(&b, "%.3f\tACC\t3,%d,0,0\n", ts, i)
		fmt.Fprintf(&b, "%.3f\tGYRO\t3,0,%d,0\n", ts+0.25, i)
	}
	b.WriteString("1700000000.300\tBLE\tAA:BB:CC:00:00:01,-60\n")
	return b.String()
}

func newUpload(t *testing.T, url, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("log", "walk.log")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(body)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestServer(t *testing.T, sink pipeline.Sink) *Server {
	t.Helper()
	s, err := New(testServerConfig(), sink)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return s
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestFormatReturnsZip(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, newUpload(t, "/api/v1/format?format=csv&label=a", uploadLog()))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("unexpected content type %q", ct)
	}

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	want := []string{
		"ble/walk_a_ble.csv",
		"inertial/walk_a_inertial_ag.csv",
		"manifest/walk_a_manifest.json",
		"wifi/walk_a_wifi.csv",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("zip entries mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatSummary(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, newUpload(t, "/api/v1/format?summary=true", uploadLog()))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Data pipeline.Manifest `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Data.InertialRows != 7 || body.Data.BLERows != 1 || body.Data.SourceFileName != "walk.log" {
		t.Fatalf("unexpected manifest: %+v", body.Data)
	}
}

func TestFormatErrors(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []struct {
		name string
		req  *http.Request
		want int
	}{
		{
			name: "missing upload",
			req:  httptest.NewRequest(http.MethodPost, "/api/v1/format", nil),
			want: http.StatusBadRequest,
		},
		{
			name: "bad format",
			req:  newUpload(t, "/api/v1/format?format=xlsx", uploadLog()),
			want: http.StatusBadRequest,
		},
		{
			name: "bad summary",
			req:  newUpload(t, "/api/v1/format?summary=maybe", uploadLog()),
			want: http.StatusBadRequest,
		},
		{
			name: "missing sensor",
			req:  newUpload(t, "/api/v1/format", "1700000000.000\tACC\t3,1,2,3\n1700000001.000\tACC\t3,1,2,3\n"),
			want: http.StatusUnprocessableEntity,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Engine().ServeHTTP(w, tc.req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

type fakeStore struct {
	saved []string
}

func (f *fakeStore) Save(_ context.Context, ds *pipeline.Dataset) error {
	f.saved = append(f.saved, ds.RunID)
	return nil
}

func (f *fakeStore) LoadRun(_ context.Context, runID string) (*store.RunSummary, error) {
	for _, id := range f.saved {
		if id == runID {
			return &store.RunSummary{RunID: id, SourceName: "walk.log"}, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func TestFormatSavesAndLoadsRun(t *testing.T) {
	fs := &fakeStore{}
	s := newTestServer(t, fs)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, newUpload(t, "/api/v1/format", uploadLog()))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	runID := w.Header().Get("X-Run-ID")
	if len(fs.saved) != 1 || fs.saved[0] != runID {
		t.Fatalf("expected run %s to be saved, got %v", runID, fs.saved)
	}

	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+runID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
