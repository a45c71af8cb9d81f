package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Header mirrors the inspection header accepted by the API.
type Header struct {
	OperatorName    string `json:"operator_name"`
	LicenseNumber   string `json:"license_number"`
	EquipmentType   string `json:"equipment_type"`
	EquipmentNumber string `json:"equipment_number"`
	InspectionDate  string `json:"inspection_date"`
}

// Definition is the part of GET /api/definitions/{type} the simulator needs.
type Definition struct {
	Type       string `json:"checklist_type"`
	TotalItems int    `json:"total_items"`
	Categories []struct {
		Title string `json:"title"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	} `json:"categories"`
}

// SubmitResult is the successful submit response.
type SubmitResult struct {
	Message   string `json:"message"`
	Checklist struct {
		ID          string `json:"id"`
		Score       int    `json:"score"`
		PassedItems int    `json:"passed_items"`
		FailedItems int    `json:"failed_items"`
	} `json:"checklist"`
}

var equipment = map[string][]string{
	"general": {"Excavator", "Bulldozer", "Wheel Loader", "Backhoe", "Skid Steer"},
	"crane":   {"Mobile Crane", "Crawler Crane", "Rough Terrain Crane", "Truck Crane"},
}

var operators = []string{"Alex Morgan", "Sam Rivera", "Jordan Lee", "Casey Kim", "Riley Chen", "Taylor Singh"}

// apiClient talks to the checklist API with an optional bearer token.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Non-2xx statuses are returned as errors carrying the body.
func (c *apiClient) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// login exchanges credentials for a token and keeps it on the client.
func (c *apiClient) login(username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login returned no token")
	}
	c.token = resp.Token
	return nil
}

// register creates an inspector account and keeps its token on the client.
func (c *apiClient) register(username, password, fullName, license string) error {
	var resp struct {
		Token string `json:"token"`
	}
	req := map[string]string{
		"username":       username,
		"email":          username + "@sim.local",
		"password":       password,
		"first_name":     fullName,
		"license_number": license,
		"role":           "inspector",
	}
	if err := c.do(http.MethodPost, "/auth/register", req, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func randomHeader(rng *rand.Rand, checklistType string, operator string) Header {
	kinds := equipment[checklistType]
	if len(kinds) == 0 {
		kinds = equipment["general"]
	}
	kind := kinds[rng.Intn(len(kinds))]
	return Header{
		OperatorName:    operator,
		LicenseNumber:   fmt.Sprintf("LIC-%05d", rng.Intn(100000)),
		EquipmentType:   kind,
		EquipmentNumber: fmt.Sprintf("EQ-%04d", rng.Intn(10000)),
		InspectionDate:  time.Now().Format("2006-01-02"),
	}
}

// pickControl returns "fail" with probability failRate, otherwise "pass".
func pickControl(rng *rand.Rand, failRate float64) string {
	if rng.Float64() < failRate {
		return "fail"
	}
	return "pass"
}

// runInspection fills in one checklist and submits it. Each item is pressed
// with probability coverage; the rest stay unchecked.
func runInspection(c *apiClient, rng *rand.Rand, checklistType, operator string, failRate, coverage float64) (*SubmitResult, error) {
	var def Definition
	if err := c.do(http.MethodGet, "/definitions/"+checklistType, nil, &def); err != nil {
		return nil, err
	}

	base := "/inspections/" + checklistType
	if err := c.do(http.MethodDelete, base, nil, nil); err != nil {
		return nil, err
	}
	if err := c.do(http.MethodPut, base+"/header", randomHeader(rng, checklistType, operator), nil); err != nil {
		return nil, err
	}

	for ci, cat := range def.Categories {
		for ii := range cat.Items {
			if rng.Float64() >= coverage {
				continue
			}
			path := fmt.Sprintf("%s/items/%d/%d/press", base, ci, ii)
			if err := c.do(http.MethodPost, path, map[string]string{"control": pickControl(rng, failRate)}, nil); err != nil {
				return nil, err
			}
		}
	}

	var result SubmitResult
	if err := c.do(http.MethodPost, base+"/submit", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			return f
		}
	}
	return def
}

func inspector(apiURL string, n int, checklistType string, interval time.Duration, rounds int, failRate, coverage float64, wg *sync.WaitGroup) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(n)))
	operator := operators[n%len(operators)]
	logger := log.WithFields(log.Fields{"inspector": n, "checklist_type": checklistType})

	c := newAPIClient(apiURL, os.Getenv("SIM_AUTH_TOKEN"))
	if c.token == "" {
		username := fmt.Sprintf("sim-inspector-%d", n)
		password := "sim-password-" + strconv.Itoa(n)
		if err := c.login(username, password); err != nil {
			if err := c.register(username, password, operator, fmt.Sprintf("LIC-SIM-%03d", n)); err != nil {
				logger.WithError(err).Error("Failed to sign in simulated inspector")
				return
			}
			logger.WithField("username", username).Info("Registered simulated inspector")
		}
	}

	for round := 0; rounds <= 0 || round < rounds; round++ {
		result, err := runInspection(c, rng, checklistType, operator, failRate, coverage)
		if err != nil {
			logger.WithError(err).Error("Inspection failed")
		} else {
			logger.WithFields(log.Fields{
				"checklist_id": result.Checklist.ID,
				"score":        result.Checklist.Score,
				"passed":       result.Checklist.PassedItems,
				"failed":       result.Checklist.FailedItems,
			}).Info("Submitted inspection")
		}
		time.Sleep(interval)
	}
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	checklistType := os.Getenv("SIM_CHECKLIST_TYPE")
	if checklistType == "" {
		checklistType = "general"
	}

	inspectors := envInt("SIM_INSPECTORS", 3)
	rounds := envInt("SIM_ROUNDS", 0)
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 5)) * time.Second
	failRate := envFloat("SIM_FAIL_RATE", 0.1)
	coverage := envFloat("SIM_COVERAGE", 0.9)

	log.WithFields(log.Fields{
		"inspectors":     inspectors,
		"api_url":        apiURL,
		"checklist_type": checklistType,
		"interval":       interval,
		"fail_rate":      failRate,
		"coverage":       coverage,
	}).Info("Starting inspection simulation")

	var wg sync.WaitGroup
	for i := 1; i <= inspectors; i++ {
		wg.Add(1)
		go inspector(apiURL, i, checklistType, interval, rounds, failRate, coverage, &wg)
	}
	wg.Wait()
	log.Info("Simulation finished")
}
