package recommend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jxeduyun/mathtutor/config"
)

func newTestClient(ts *httptest.Server) *Client {
	return New(config.RecommendationConfig{BaseURL: ts.URL, TopK: 1, Timeout: 2 * time.Second})
}

func TestFindCourseSuccess(t *testing.T) {
	var gotPath, gotQuery, gotTopK string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotTopK = r.URL.Query().Get("top_k")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"course_uuid":"c-1","resource_name":"初中初二下数学","file_name":"二次根式","video_link":"https://example.com/v.mp4","video_summary":"s"}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	course, ok, err := c.FindCourse(context.Background(), "什么是二次根式")
	if err != nil || !ok {
		t.Fatalf("FindCourse: ok=%v err=%v", ok, err)
	}
	if course.CourseUUID != "c-1" || course.ResourceName != "初中初二下数学" {
		t.Fatalf("unexpected course: %+v", course)
	}
	if gotPath != "/api/v1/recommendation/rag/search/courses" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "什么是二次根式" || gotTopK != "1" {
		t.Fatalf("unexpected query params query=%q top_k=%q", gotQuery, gotTopK)
	}
}

func TestFindCourseEmptyResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, ok, err := c.FindCourse(context.Background(), "q")
	if err != nil {
		t.Fatalf("empty result is not a failure: %v", err)
	}
	if ok {
		t.Fatal("expected absent course")
	}
}

func TestFindCourseNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, ok, err := c.FindCourse(context.Background(), "q")
	if err == nil {
		t.Fatal("expected lookup failure for non-200 status")
	}
	if ok {
		t.Fatal("failed lookup must report absent")
	}
}

func TestFindCourseTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	c := newTestClient(ts)
	_, ok, err := c.FindCourse(context.Background(), "q")
	if err == nil || ok {
		t.Fatalf("expected transport failure, ok=%v err=%v", ok, err)
	}
}

func TestFindReport(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"data":[{"start_time":"00:05:30","end_time":"00:15:45","duration":"10:15","key_points":["A","B"]}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	report, ok, err := c.FindReport(context.Background(), "c-1", "q")
	if err != nil || !ok {
		t.Fatalf("FindReport: ok=%v err=%v", ok, err)
	}
	if gotPath != "/api/v1/recommendation/rag/search/reports/c-1" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if report.StartTime != "00:05:30" || len(report.KeyPoints) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestFindReportMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, ok, err := c.FindReport(context.Background(), "c-1", "q")
	if err == nil || ok {
		t.Fatalf("expected decode failure, ok=%v err=%v", ok, err)
	}
}

func TestFindCourseNullData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, ok, err := c.FindCourse(context.Background(), "q")
	if err != nil || ok {
		t.Fatalf("null data is absent, not a failure: ok=%v err=%v", ok, err)
	}
}
