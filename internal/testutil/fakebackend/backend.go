// Package fakebackend is an in-memory implementation of the compute platform's HTTP API for tests.
package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

const SessionCookie = "session_id"

type User struct {
	Id       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	password string
}

// Chunk is one received upload chunk.
type Chunk struct {
	Path        string
	FileName    string
	ContentType string
	Index       int
	Total       int
	Size        int
	RequiredRam string
	Data        []byte
}

type Job struct {
	JobId      int       `json:"job_id"`
	JobName    string    `json:"job_name"`
	JobType    string    `json:"job_type"`
	Status     string    `json:"status"`
	ScriptName string    `json:"script_file_name"`
	CreatedAt  time.Time `json:"created_at"`
	Owner      int       `json:"-"`
}

type Group struct {
	GroupId        int       `json:"group_id"`
	GroupName      string    `json:"group_name"`
	NumOfJobs      int       `json:"num_of_jobs"`
	PythonFileName string    `json:"python_file_name"`
	AggregatorName string    `json:"aggregator_file_name,omitempty"`
	JobIds         []int     `json:"job_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*User
	sessions map[string]*User
	jobs     map[int]*Job
	groups   map[int]*Group
	payments map[int]string
	results  map[int][]byte
	nextId   int

	chunks        []Chunk
	inFlight      int
	maxInFlight   int
	failChunk     map[int]int
	failMessage   string
	meFails       bool
	logoutFails   bool
	autoLogin     bool
	chunkDelay    time.Duration
	statistics    map[string]interface{}
	statisticsErr bool
	requests      []string
}

func New() *Backend {
	b := &Backend{
		users:     map[string]*User{},
		sessions:  map[string]*User{},
		jobs:      map[int]*Job{},
		groups:    map[int]*Group{},
		payments:  map[int]string{},
		results:   map[int][]byte{},
		nextId:    1,
		failChunk: map[int]int{},
		statistics: map[string]interface{}{
			"nodes":    3,
			"earnings": 12.5,
		},
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

// AddUser registers an account and returns it.
func (b *Backend) AddUser(name, email, password, role string) *User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &User{Id: b.nextId, Name: name, Email: email, Role: role, password: password}
	b.nextId++
	b.users[name] = u
	return u
}

// FailChunk makes the upload of chunk index answer with status.
func (b *Backend) FailChunk(index int, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failChunk[index] = status
	b.failMessage = message
}

// SetAutoLogin makes registration also log the new user in.
func (b *Backend) SetAutoLogin(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoLogin = v
}

// SetChunkDelay delays every chunk response by d.
func (b *Backend) SetChunkDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunkDelay = d
}

func (b *Backend) FailStatistics(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statisticsErr = fail
}

func (b *Backend) FailMe(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meFails = fail
}

func (b *Backend) FailLogout(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutFails = fail
}

// ExpireSessions forgets every issued session, so subsequent requests receive HTTP 401.
func (b *Backend) ExpireSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = map[string]*User{}
}

func (b *Backend) Chunks() []Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Chunk{}, b.chunks...)
}

// MaxConcurrentChunks is the highest number of chunk requests seen in flight at once per path.
func (b *Backend) MaxConcurrentChunks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

func (b *Backend) SetResult(jobId int, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[jobId] = data
}

func (b *Backend) SetJobStatus(jobId int, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if j, ok := b.jobs[jobId]; ok {
		j.Status = status
	}
}

func (b *Backend) Job(jobId int) (Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[jobId]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (b *Backend) PaymentStatus(jobId int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.payments[jobId]
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", b.login)
		r.Post("/register", b.register)
		r.Get("/me", b.me)
		r.Post("/logout", b.logout)
	})
	r.Get("/api/statistics", b.serveStatistics)
	r.Group(func(r chi.Router) {
		r.Use(b.authenticated)
		r.Route("/api/jobs", func(r chi.Router) {
			r.Get("/", b.listJobs)
			r.Post("/", b.createJob)
			r.Get("/{jobId}", b.getJob)
			r.Post("/{jobId}/upload-data", b.uploadChunk)
			r.Get("/{jobId}/download", b.download)
			r.Get("/{jobId}/payment", b.payment)
			r.Post("/{jobId}/payment", b.pay)
		})
		r.Get("/api/group", b.listGroups)
		r.Post("/api/group", b.createGroup)
		r.Get("/api/group/{groupId}", b.getGroup)
		r.Post("/api/group/{groupId}/{jobId}/upload-zip-file", b.uploadChunk)
		r.Get("/api/nodes", b.nodes)
		r.Get("/api/nodes/{nodeId}", b.nodeDetail)
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) RequestCount(methodAndPath string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r == methodAndPath {
			n++
		}
	}
	return n
}

func (b *Backend) currentUser(r *http.Request) *User {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[c.Value]
}

func (b *Backend) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.currentUser(r) == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) issueSession(w http.ResponseWriter, u *User) {
	raw := make([]byte, 16)
	_, _ = rand.Read(raw)
	token := hex.EncodeToString(raw)
	b.mu.Lock()
	b.sessions[token] = u
	b.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UsernameOrEmail string `json:"username_or_email"`
		Password        string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Invalid request"})
		return
	}
	b.mu.Lock()
	var found *User
	for _, u := range b.users {
		if u.Name == req.UsernameOrEmail || u.Email == req.UsernameOrEmail {
			found = u
		}
	}
	b.mu.Unlock()
	if found == nil || found.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Invalid username or password"})
		return
	}
	b.issueSession(w, found)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Login successful", "user": found})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Invalid request"})
		return
	}
	b.mu.Lock()
	_, exists := b.users[req.Username]
	b.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "message": "Username already registered"})
		return
	}
	u := b.AddUser(req.Username, req.Email, req.Password, "user")
	b.mu.Lock()
	autoLogin := b.autoLogin
	b.mu.Unlock()
	if autoLogin {
		b.issueSession(w, u)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": "Registration successful", "user": u})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": "Registration successful, please log in"})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	fails := b.meFails
	b.mu.Unlock()
	if fails {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"message": "internal error"})
		return
	}
	u := b.currentUser(r)
	if u == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "unauthenticated", "user": nil, "message": "No active session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "authenticated", "user": u})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	fails := b.logoutFails
	b.mu.Unlock()
	if fails {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"message": "logout failed"})
		return
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, c.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Logged out"})
}

func (b *Backend) serveStatistics(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statisticsErr {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"message": "statistics unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, b.statistics)
}

func (b *Backend) createJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Invalid form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Script file is required"})
		return
	}
	defer file.Close()
	script, _ := io.ReadAll(file)
	if strings.Contains(string(script), "os.system") {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Vulnerable script detected: os.system is not allowed"})
		return
	}
	u := b.currentUser(r)
	b.mu.Lock()
	j := &Job{
		JobId:      b.nextId,
		JobName:    r.FormValue("job_name"),
		JobType:    r.FormValue("job_type"),
		Status:     "submitted",
		ScriptName: header.Filename,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Owner:      u.Id,
	}
	b.nextId++
	b.jobs[j.JobId] = j
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, j)
}

func (b *Backend) listJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	b.mu.Lock()
	jobs := []*Job{}
	for id := 1; id < b.nextId; id++ {
		if j, ok := b.jobs[id]; ok && (status == "" || j.Status == status) {
			jobs = append(jobs, j)
		}
	}
	b.mu.Unlock()
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page == 0 {
		page = 1
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "total": len(jobs), "page": page})
}

func (b *Backend) jobFromPath(w http.ResponseWriter, r *http.Request) (*Job, bool) {
	id, _ := strconv.Atoi(chi.URLParam(r, "jobId"))
	b.mu.Lock()
	j, ok := b.jobs[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": fmt.Sprintf("Job %d not found", id)})
		return nil, false
	}
	return j, true
}

func (b *Backend) getJob(w http.ResponseWriter, r *http.Request) {
	j, ok := b.jobFromPath(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, j)
}

func (b *Backend) uploadChunk(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	delay := b.chunkDelay
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()
	if delay > 0 {
		time.Sleep(delay)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Invalid form"})
		return
	}
	chunk := Chunk{Path: r.URL.Path, Index: -1}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Invalid form"})
			return
		}
		data, _ := io.ReadAll(part)
		switch part.FormName() {
		case "file":
			chunk.FileName = part.FileName()
			chunk.ContentType = part.Header.Get("Content-Type")
			chunk.Data = data
			chunk.Size = len(data)
		case "chunk_index":
			chunk.Index, _ = strconv.Atoi(string(data))
		case "total_chunks":
			chunk.Total, _ = strconv.Atoi(string(data))
		case "required_ram":
			chunk.RequiredRam = string(data)
		}
	}

	b.mu.Lock()
	b.chunks = append(b.chunks, chunk)
	status, fail := b.failChunk[chunk.Index]
	message := b.failMessage
	b.mu.Unlock()
	if fail {
		writeJSON(w, status, map[string]interface{}{"message": message})
		return
	}
	if strings.HasSuffix(r.URL.Path, "upload-zip-file") {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Chunk received",
		"data_chunk_index": chunk.Index,
		"job_id":           chi.URLParam(r, "jobId"),
	})
}

func (b *Backend) download(w http.ResponseWriter, r *http.Request) {
	j, ok := b.jobFromPath(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	data, ok := b.results[j.JobId]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Result not available"})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write(data)
}

func (b *Backend) paymentBody(j *Job) map[string]interface{} {
	status := b.payments[j.JobId]
	if status == "" {
		status = "pending"
	}
	body := map[string]interface{}{
		"job_id": j.JobId,
		"status": status,
		"amount": 3.75,
		"tasks": []map[string]interface{}{
			{"task_id": 1, "total_active_time": 120.5, "avg_memory_bytes": 268435456, "task_payment_amount": 2.5},
			{"task_id": 2, "total_active_time": 60.25, "avg_memory_bytes": 134217728, "task_payment_amount": 1.25},
		},
	}
	if status == "completed" {
		body["payment_date"] = "2026-01-03T10:00:00Z"
	}
	return body
}

func (b *Backend) payment(w http.ResponseWriter, r *http.Request) {
	j, ok := b.jobFromPath(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if j.Status != "completed" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Job is not completed"})
		return
	}
	writeJSON(w, http.StatusOK, b.paymentBody(j))
}

func (b *Backend) pay(w http.ResponseWriter, r *http.Request) {
	j, ok := b.jobFromPath(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.payments[j.JobId] == "completed" {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"message": "Payment already processed"})
		return
	}
	b.payments[j.JobId] = "completed"
	writeJSON(w, http.StatusOK, b.paymentBody(j))
}

func (b *Backend) createGroup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Invalid form"})
		return
	}
	file, header, err := r.FormFile("python_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Python file is required"})
		return
	}
	defer file.Close()
	script, _ := io.ReadAll(file)
	if strings.Contains(string(script), "os.system") {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Vulnerable script detected"})
		return
	}
	n, _ := strconv.Atoi(r.FormValue("num_of_jobs"))
	g := &Group{
		GroupName:      r.FormValue("group_name"),
		NumOfJobs:      n,
		PythonFileName: header.Filename,
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if _, agg, err := r.FormFile("aggregator_file"); err == nil {
		g.AggregatorName = agg.Filename
	}
	b.mu.Lock()
	g.GroupId = b.nextId
	b.nextId++
	for i := 0; i < n; i++ {
		g.JobIds = append(g.JobIds, b.nextId)
		b.jobs[b.nextId] = &Job{JobId: b.nextId, JobName: fmt.Sprintf("%s-%d", g.GroupName, i), Status: "submitted"}
		b.nextId++
	}
	b.groups[g.GroupId] = g
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, g)
}

func (b *Backend) listGroups(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	groups := []*Group{}
	for id := 1; id < b.nextId; id++ {
		if g, ok := b.groups[id]; ok {
			groups = append(groups, g)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

func (b *Backend) getGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "groupId"))
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Group not found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (b *Backend) nodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": []map[string]interface{}{
			{"node_id": "node-a", "is_alive": true, "created_at": "2026-01-01T00:00:00Z", "total_node_earnings": 10.5, "num_of_completed_tasks": 4},
			{"node_id": "node-b", "is_alive": false, "created_at": "2026-01-02T00:00:00Z", "total_node_earnings": 2, "num_of_completed_tasks": 1},
		},
		"number_of_nodes":  2,
		"total_earnings":   12.5,
		"paid_earnings":    10,
		"pending_earnings": 2.5,
	})
}

func (b *Backend) nodeDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeId")
	if id != "node-a" && id != "node-b" {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"detail": "Node not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"node_id":                id,
		"is_alive":               id == "node-a",
		"total_node_earnings":    10.5,
		"num_of_completed_tasks": 1,
		"tasks": []map[string]interface{}{
			{"task_id": 1, "job_id": 2, "status": "completed", "started_at": "2026-01-03T09:00:00Z", "completed_at": "2026-01-03T09:02:00Z", "total_active_time": 120.5, "avg_memory_bytes": 268435456, "earning_amount": 2.5, "earning_status": "paid"},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
