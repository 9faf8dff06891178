package orthanc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/radiq/radiq-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestListInstancesParsesQIDO(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/studies/1.2.3/series/1.2.3.4/instances" {
			t.Errorf("path: got %q", got)
		}
		w.Header().Set("Content-Type", "application/dicom+json")
		w.Write([]byte(`[
			{"00080018":{"vr":"UI","Value":["1.2.3.4.5"]},"00200013":{"vr":"IS","Value":[7]}},
			{"00080018":{"vr":"UI","Value":["1.2.3.4.6"]}}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "", testLogger(t))
	instances, err := client.ListInstances(context.Background(), "1.2.3", "1.2.3.4")
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("instance count: want=2 got=%d", len(instances))
	}
	if instances[0].SOPInstanceUID != "1.2.3.4.5" {
		t.Fatalf("sop uid: want=1.2.3.4.5 got=%q", instances[0].SOPInstanceUID)
	}
	if instances[0].InstanceNumber == nil || *instances[0].InstanceNumber != 7 {
		t.Fatalf("instance number: want=7 got=%v", instances[0].InstanceNumber)
	}
	if instances[1].InstanceNumber != nil {
		t.Fatalf("missing instance number should stay nil")
	}
	if instances[1].SeriesInstanceUID != "1.2.3.4" {
		t.Fatalf("series uid not carried through: %q", instances[1].SeriesInstanceUID)
	}
}

func TestListStudiesSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "orthanc" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"0020000D":{"vr":"UI","Value":["9.8.7"]}}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "orthanc", "secret", testLogger(t))
	uids, err := client.ListStudies(context.Background())
	if err != nil {
		t.Fatalf("ListStudies: %v", err)
	}
	if len(uids) != 1 || uids[0] != "9.8.7" {
		t.Fatalf("studies: want=[9.8.7] got=%v", uids)
	}
}

func TestGetTreatsNoContentAsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "", testLogger(t))
	uids, err := client.ListStudies(context.Background())
	if err != nil {
		t.Fatalf("ListStudies on 204: %v", err)
	}
	if len(uids) != 0 {
		t.Fatalf("want no studies, got %v", uids)
	}
}

func TestGetSurfacesArchiveErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "archive down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "", testLogger(t))
	if _, err := client.ListStudies(context.Background()); err == nil {
		t.Fatalf("want error on 502, got nil")
	}
}
