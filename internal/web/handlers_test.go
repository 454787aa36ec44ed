package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

var (
	testNow      = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	testSchedule = types.EventSchedule{
		StartDate: "2024-06-01", StartTime: "10:00",
		EndDate: "2024-06-01", EndTime: "18:00",
	}
)

// newTestServer는 격리된 프로필 디렉터리와 고정 시각을 가진 서버를 생성합니다.
func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Event.Timezone = "UTC"
	cfg.Event.Schedule = testSchedule
	cfg.Jobs = 1
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewServer(cfg, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(s.Close)

	pm, err := config.NewProfileManagerAt(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create profile manager: %v", err)
	}
	s.SetProfileManager(pm)
	s.now = func() time.Time { return testNow }
	return s
}

// decodeAPIErrorResponse는 API 에러 응답을 디코딩합니다.
func decodeAPIErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()

	var response APIErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode APIErrorResponse: %v", err)
	}
	return response
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

type upload struct {
	name         string
	contentType  string
	data         []byte
	lastModified time.Time
}

// multipartRequest는 /api/validate 요청 바디를 구성합니다.
func multipartRequest(t *testing.T, uploads []upload, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, u := range uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+u.name+`"`)
		h.Set("Content-Type", u.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(u.data)

		lm := ""
		if !u.lastModified.IsZero() {
			lm = strconv.FormatInt(u.lastModified.UnixMilli(), 10)
		}
		mw.WriteField("lastModified", lm)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/validate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// TestHandleGetConfig_ReturnsValidationAndEvent는 현재 설정 조회를 검증합니다.
func TestHandleGetConfig_ReturnsValidationAndEvent(t *testing.T) {
	s := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body ConfigResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}
	if body.Validation.MaxFileSizeBytes != 10*config.MiB {
		t.Fatalf("unexpected max file size: %d", body.Validation.MaxFileSizeBytes)
	}
	if body.Event.Schedule != testSchedule {
		t.Fatalf("unexpected schedule: %+v", body.Event.Schedule)
	}
}

// TestHandleValidateSchedule는 일정 검증 API의 상태 코드와 메시지를 검증합니다.
func TestHandleValidateSchedule(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"valid", `{"start_date":"2024-06-01","start_time":"10:00","end_date":"2024-06-01","end_time":"18:00"}`, http.StatusOK, ""},
		{"start in past", `{"start_date":"2024-04-01","start_time":"10:00","end_date":"2024-06-01","end_time":"18:00"}`, http.StatusBadRequest, "Start date cannot be in the past"},
		{"end before start", `{"start_date":"2024-06-02","start_time":"10:00","end_date":"2024-06-01","end_time":"18:00"}`, http.StatusBadRequest, "End date cannot be before start date"},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/schedule/validate", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			s.router.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantMessage != "" {
				var body ScheduleErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if body.Message != tt.wantMessage {
					t.Fatalf("expected %q, got %q", tt.wantMessage, body.Message)
				}
			}
		})
	}
}

// TestHandleValidate_RequiresFiles는 파일 없는 요청 거부를 검증합니다.
func TestHandleValidate_RequiresFiles(t *testing.T) {
	s := newTestServer(t, nil)

	// multipart가 아닌 요청과 파일 필드가 없는 요청 모두 같은 메시지여야 한다.
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader("{}")),
		multipartRequest(t, nil, map[string]string{"userName": "guest"}),
	} {
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		if got := decodeAPIErrorResponse(t, rr).Message; got != "Missing required parameter - file" {
			t.Fatalf("unexpected message: %q", got)
		}
	}
}

// TestHandleValidate_RequiresSchedule는 일정 없는 요청 거부를 검증합니다.
func TestHandleValidate_RequiresSchedule(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Event.Schedule = types.EventSchedule{}
	})

	req := multipartRequest(t, []upload{{name: "a.png", contentType: "image/png", data: pngBytes(t)}}, nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if got := decodeAPIErrorResponse(t, rr).Message; got != "event schedule is required" {
		t.Fatalf("unexpected message: %q", got)
	}
}

// TestHandleValidate_RejectsScreenshot는 EXIF 없는 스크린샷 업로드 거부를 검증합니다.
func TestHandleValidate_RejectsScreenshot(t *testing.T) {
	s := newTestServer(t, nil)

	req := multipartRequest(t, []upload{{
		name:         "Screenshot_2024.png",
		contentType:  "image/png",
		data:         pngBytes(t),
		lastModified: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}}, nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var body BatchRejectedResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Message != "No files were successfully validated" {
		t.Fatalf("unexpected message: %q", body.Message)
	}
	if !strings.HasPrefix(body.Error, "Image must be taken directly from Snapchat or a phone camera") {
		t.Fatalf("unexpected error: %q", body.Error)
	}
	if len(body.Rejected) != 1 || body.Rejected[0].Name != "Screenshot_2024.png" {
		t.Fatalf("unexpected rejected list: %+v", body.Rejected)
	}
}

// TestHandleValidate_AcceptsWithLenientSettings는 완화된 설정에서 수락 응답을 검증합니다.
func TestHandleValidate_AcceptsWithLenientSettings(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Validation.RequireOriginalPhoto = false
	})

	req := multipartRequest(t, []upload{
		{name: "a.png", contentType: "image/png", data: pngBytes(t), lastModified: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		{name: "late.png", contentType: "image/png", data: pngBytes(t), lastModified: time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)},
	}, map[string]string{"userName": "Jamie"})
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body ValidateResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Accepted) != 1 || body.Accepted[0].OriginalName != "a.png" {
		t.Fatalf("unexpected accepted list: %+v", body.Accepted)
	}
	if body.Accepted[0].UploaderLabel != "Jamie" {
		t.Fatalf("unexpected uploader: %q", body.Accepted[0].UploaderLabel)
	}
	if body.Accepted[0].CreationSource != types.CreationSourceLastModified {
		t.Fatalf("unexpected creation source: %q", body.Accepted[0].CreationSource)
	}
	if len(body.Rejected) != 1 || !strings.Contains(body.Rejected[0].Reason, "after the allowed time window") {
		t.Fatalf("unexpected rejected list: %+v", body.Rejected)
	}
	if body.BatchID == "" || body.Summary.TotalFiles != 2 {
		t.Fatalf("unexpected batch info: id=%q summary=%+v", body.BatchID, body.Summary)
	}
}

// TestHandleValidate_RejectsBadLastModified는 잘못된 lastModified 값 거부를 검증합니다.
func TestHandleValidate_RejectsBadLastModified(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "a.png")
	fw.Write(pngBytes(t))
	mw.WriteField("lastModified", "yesterday")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/validate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

// TestHandleValidate_RateLimited는 IP별 요청 제한을 검증합니다.
func TestHandleValidate_RateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Web.RateLimitRPS = 0.001
		c.Web.RateLimitBurst = 1
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader("{}"))
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [400 429], got %v", codes)
	}
}

// TestProfileRoutes_SaveLoadApplyDelete는 프로필 API 전체 흐름을 검증합니다.
func TestProfileRoutes_SaveLoadApplyDelete(t *testing.T) {
	s := newTestServer(t, nil)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rr
	}

	lenient := config.DefaultValidation()
	lenient.RequireOriginalPhoto = false
	lenient.TimeBufferMinutes = 120
	payload, _ := json.Marshal(map[string]interface{}{
		"name":        "lenient",
		"description": "walk-in uploads",
		"validation":  lenient,
	})

	if rr := do(http.MethodPost, "/api/profiles", string(payload)); rr.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr := do(http.MethodGet, "/api/profiles", "")
	var profiles []config.Profile
	if err := json.NewDecoder(rr.Body).Decode(&profiles); err != nil {
		t.Fatalf("failed to decode profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "lenient" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}

	if rr := do(http.MethodGet, "/api/profiles/lenient", ""); rr.Code != http.StatusOK {
		t.Fatalf("load: expected 200, got %d", rr.Code)
	}

	// 적용 후 설정 조회에 반영되어야 한다.
	if rr := do(http.MethodPost, "/api/profiles/lenient/apply", ""); rr.Code != http.StatusOK {
		t.Fatalf("apply: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var cfgBody ConfigResponse
	json.NewDecoder(do(http.MethodGet, "/api/config", "").Body).Decode(&cfgBody)
	if cfgBody.Validation.RequireOriginalPhoto || cfgBody.Validation.TimeBufferMinutes != 120 {
		t.Fatalf("expected applied profile settings, got %+v", cfgBody.Validation)
	}

	if rr := do(http.MethodDelete, "/api/profiles/lenient", ""); rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	if rr := do(http.MethodGet, "/api/profiles/lenient", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

// TestProfileRoutes_ValidationErrors는 잘못된 프로필 요청의 필드 오류를 검증합니다.
func TestProfileRoutes_ValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing name", `{"description":"x"}`, "name"},
		{"bad name", `{"name":"../escape"}`, "name"},
		{"bad quality", `{"name":"broken","validation":{"initial_quality":0,"minimum_quality":60,"max_compression_attempts":5,"max_file_size_bytes":1,"target_file_size_bytes":1}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(tt.body)))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var body ValidationError
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if tt.wantField != "" && body.Field != tt.wantField {
				t.Fatalf("expected field %s, got %s", tt.wantField, body.Field)
			}
			if body.Message == "" {
				t.Fatal("expected validation message")
			}
		})
	}
}
