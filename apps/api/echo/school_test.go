package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

func TestSchoolAPI_schools(t *testing.T) {
	server, conf := newTestServer(t, 1)
	token := getToken(t, conf, tenant.Context{SchoolID: 1, DeviceID: "dev-a"})

	// create
	req, rec := newAuthRequest(http.MethodPost, "/v1/schools", token, []byte(`{"id":1,"name":"Central","address":"1 Main St"}`))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d: %s", rec.Code, rec.Body.String())
	}
	var sch school.School
	if err := json.Unmarshal(rec.Body.Bytes(), &sch); err != nil {
		t.Fatalf("decoding school: %v", err)
	}
	if sch.ID != 1 || sch.Name != "Central" || sch.CreatedAt.IsZero() {
		t.Errorf("school = %+v; want the created record", sch)
	}

	tests := []httpTest{
		{
			name: "duplicate ID", method: http.MethodPost, path: "/v1/schools", token: token,
			body:     []byte(`{"id":1,"name":"Central Again"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"error":"a school with this ID already exists"}`),
		},
		{
			name: "missing name", method: http.MethodPost, path: "/v1/schools", token: token,
			body:     []byte(`{"id":3}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name":"this field is required"}`),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/schools/1", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, sch),
		},
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/v1/schools/42", token: token,
			wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`),
		},
		{
			name: "list", method: http.MethodGet, path: "/v1/schools", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, []school.School{sch}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestSchoolAPI_classes(t *testing.T) {
	server, conf := newTestServer(t, 1)
	token := getToken(t, conf, tenant.Context{SchoolID: 1, DeviceID: "dev-a"})

	req, rec := newAuthRequest(http.MethodPost, "/v1/schools/1/classes", token, []byte(`{"name":"Grade 5","section":"B"}`))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create class code = %d: %s", rec.Code, rec.Body.String())
	}
	var cls school.Class
	if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
		t.Fatalf("decoding class: %v", err)
	}
	if cls.ID == "" || cls.SchoolID != 1 || cls.Name != "Grade 5" {
		t.Errorf("class = %+v; want a stored class with a generated ID", cls)
	}

	// another school's classes are off limits for this token
	req, rec = newAuthRequest(http.MethodGet, "/v1/schools/2/classes", token)
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: []byte(`{"error":"school_id does not match the device token"}`),
	}, rec)

	// list own school
	req, rec = newAuthRequest(http.MethodGet, "/v1/schools/1/classes", token)
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []school.Class{cls})}, rec)

	// delete
	req, rec = newAuthRequest(http.MethodDelete, "/v1/schools/1/classes/"+cls.ID, token)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete code = %d; want 204", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/schools/1/classes/"+cls.ID, token)
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`)}, rec)
}

func TestSchoolAPI_holidays(t *testing.T) {
	server, conf := newTestServer(t, 1)
	token := getToken(t, conf, tenant.Context{SchoolID: 1, DeviceID: "dev-a"})

	tests := []httpTest{
		{
			name: "invalid date", method: http.MethodPost, path: "/v1/schools/1/holidays", token: token,
			body:     []byte(`{"date":"January 26","reason":"Republic Day"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"date":"must be a YYYY-MM-DD date"}`),
		},
		{
			name: "missing reason", method: http.MethodPost, path: "/v1/schools/1/holidays", token: token,
			body:     []byte(`{"date":"2024-01-26"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"reason":"this field is required"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/schools/1/holidays", token, []byte(`{"date":"2024-01-26","reason":"Republic Day"}`))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create holiday code = %d: %s", rec.Code, rec.Body.String())
	}
	var hol school.Holiday
	if err := json.Unmarshal(rec.Body.Bytes(), &hol); err != nil {
		t.Fatalf("decoding holiday: %v", err)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/schools/1/holidays", token)
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []school.Holiday{hol})}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/schools/1/holidays/"+hol.ID, token)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete code = %d; want 204", rec.Code)
	}
}
