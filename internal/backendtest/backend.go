// Package backendtest serves an in-memory commerce backend over httptest so
// client packages can be exercised end to end. It mirrors the real endpoints
// closely enough for cookies, envelopes and error bodies to matter.
package backendtest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const SessionCookie = "POS_SESSION"

type user struct {
	password string
	record   map[string]any
}

type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	users       map[string]user
	sessions    map[string]string
	collections map[string][]map[string]any
	posted      map[string][]map[string]any
	report      map[string]any
	failures    map[string]failure
	hits        map[string]int
	wrap        bool
	nextID      int64
}

type failure struct {
	status int
	body   string
}

// New starts a seeded backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		users: map[string]user{
			"admin": {password: "admin123", record: map[string]any{
				"id": 1, "username": "admin", "fullName": "Admin Toko", "email": "admin@kasirinaja.test", "roleId": 1,
			}},
			"kasir": {password: "cashier123", record: map[string]any{
				"id": 2, "username": "kasir", "fullName": "Kasir A", "roleId": 2,
			}},
		},
		sessions:    make(map[string]string),
		collections: seedCollections(),
		posted:      make(map[string][]map[string]any),
		failures:    make(map[string]failure),
		hits:        make(map[string]int),
		wrap:        true,
		nextID:      1000,
	}
	b.Server = httptest.NewServer(b.handler())
	t.Cleanup(b.Server.Close)
	return b
}

func seedCollections() map[string][]map[string]any {
	return map[string][]map[string]any{
		"products": {
			{"id": 1, "name": "Mie Goreng Instan", "price": 3500, "reorderLevel": 10},
			{"id": 2, "name": "Telur 10 Butir", "price": 26500, "reorderLevel": 5},
			{"id": 3, "name": "Susu UHT 1L", "price": 18900},
		},
		"stock-batches": {
			{"id": 11, "productId": 1, "quantityRemaining": 4},
			{"id": 12, "productId": 1, "quantityRemaining": 3},
			{"id": 13, "productId": 2, "quantityRemaining": 40},
		},
		"customers": {
			{"id": 21, "name": "Budi", "phone": "081200000001", "createdAt": "2024-01-01T08:00:00"},
		},
		"sales": {
			{"id": 31, "totalAmount": 35000, "saleDate": "2024-01-01T09:15:00", "paymentStatus": "PAID"},
		},
		"returns": {
			{"id": 41, "saleId": 31, "status": "PENDING"},
		},
		"payments": {},
	}
}

func (b *Backend) URL() string {
	return b.Server.URL
}

// WrapResponses switches between {"data": ...} envelopes and bare bodies.
func (b *Backend) WrapResponses(wrap bool) {
	b.mu.Lock()
	b.wrap = wrap
	b.mu.Unlock()
}

func (b *Backend) SetCollection(kind string, records ...map[string]any) {
	b.mu.Lock()
	b.collections[kind] = records
	b.mu.Unlock()
}

// SetDailyReport sets the report body; nil makes the endpoint answer 404.
func (b *Backend) SetDailyReport(report map[string]any) {
	b.mu.Lock()
	b.report = report
	b.mu.Unlock()
}

// Fail makes every matching request answer status with body. An empty body
// produces {"message": "injected failure"}.
func (b *Backend) Fail(method string, path string, status int, body string) {
	if body == "" {
		body = `{"message":"injected failure"}`
	}
	b.mu.Lock()
	b.failures[method+" "+path] = failure{status: status, body: body}
	b.mu.Unlock()
}

func (b *Backend) ExpireSessions() {
	b.mu.Lock()
	b.sessions = make(map[string]string)
	b.mu.Unlock()
}

func (b *Backend) Hits(method string, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

func (b *Backend) TotalHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.hits {
		total += n
	}
	return total
}

// Posted returns the JSON bodies received on POST path.
func (b *Backend) Posted(path string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, len(b.posted[path]))
	copy(out, b.posted[path])
	return out
}

func (b *Backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/signup", b.handleSignup)
	mux.HandleFunc("POST /api/auth/logout", b.handleLogout)
	mux.HandleFunc("GET /api/auth/me", b.requireSession(b.handleMe))
	mux.HandleFunc("GET /api/secure/reports/daily", b.requireSession(b.handleDailyReport))
	mux.HandleFunc("GET /api/secure/{kind}", b.requireSession(b.handleList))
	mux.HandleFunc("GET /api/secure/{kind}/{id}", b.requireSession(b.handleGet))
	mux.HandleFunc("POST /api/secure/{kind}", b.requireSession(b.handleCreate))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.hits[key]++
		fail, injected := b.failures[key]
		b.mu.Unlock()

		if injected {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = w.Write([]byte(fail.body))
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (b *Backend) requireSession(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Authentication required"})
			return
		}
		b.mu.Lock()
		username, ok := b.sessions[cookie.Value]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Session expired"})
			return
		}
		next(w, r, username)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid body"})
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Username]
	b.mu.Unlock()
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	}

	token := newToken()
	b.mu.Lock()
	b.sessions[token] = req.Username
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Login successful", "data": u.record})
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid body"})
		return
	}
	username, _ := req["username"].(string)
	password, _ := req["password"].(string)
	if strings.TrimSpace(username) == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Username and password are required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[username]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Username already taken"})
		return
	}
	b.nextID++
	roleID := req["roleId"]
	if roleID == nil {
		roleID = 2
	}
	b.users[username] = user{password: password, record: map[string]any{
		"id": b.nextID, "username": username, "fullName": req["fullName"], "roleId": roleID,
	}}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Account created"})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, cookie.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleMe(w http.ResponseWriter, _ *http.Request, username string) {
	b.mu.Lock()
	u := b.users[username]
	b.mu.Unlock()
	b.writePayload(w, http.StatusOK, u.record)
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request, _ string) {
	kind := r.PathValue("kind")
	b.mu.Lock()
	records, ok := b.collections[kind]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown resource " + kind})
		return
	}
	if records == nil {
		records = []map[string]any{}
	}
	b.writePayload(w, http.StatusOK, records)
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request, _ string) {
	kind := r.PathValue("kind")
	id := r.PathValue("id")
	b.mu.Lock()
	records := b.collections[kind]
	b.mu.Unlock()
	for _, rec := range records {
		if jsonText(rec["id"]) == id {
			b.writePayload(w, http.StatusOK, rec)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request, _ string) {
	kind := r.PathValue("kind")
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid body"})
		return
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.posted[r.URL.Path] = append(b.posted[r.URL.Path], body)
	created := make(map[string]any, len(body)+1)
	for k, v := range body {
		created[k] = v
	}
	created["id"] = id
	b.collections[kind] = append(b.collections[kind], created)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Created " + kind,
		"data":    map[string]any{"id": id},
	})
}

func (b *Backend) handleDailyReport(w http.ResponseWriter, r *http.Request, _ string) {
	b.mu.Lock()
	report := b.report
	b.mu.Unlock()
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "No report for " + r.URL.Query().Get("date")})
		return
	}
	b.writePayload(w, http.StatusOK, report)
}

func (b *Backend) writePayload(w http.ResponseWriter, status int, payload any) {
	b.mu.Lock()
	wrap := b.wrap
	b.mu.Unlock()
	if wrap {
		writeJSON(w, status, map[string]any{"success": true, "data": payload})
		return
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonText(v any) string {
	raw, _ := json.Marshal(v)
	return strings.Trim(string(raw), `"`)
}

func newToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
