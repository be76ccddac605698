package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/wavecoach/internal/app"
	"github.com/ayusman/wavecoach/internal/metrics"
	"github.com/ayusman/wavecoach/internal/wave"
	"github.com/ayusman/wavecoach/testdata"
)

// postRecording posts every frame of a recording and returns the results.
func postRecording(t *testing.T, client *http.Client, url, name string) []wave.Result {
	t.Helper()

	data, err := testdata.Open(name)
	require.NoError(t, err)

	var results []wave.Result
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		resp, err := client.Post(url, "application/json", strings.NewReader(line))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var res wave.Result
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		resp.Body.Close()
		results = append(results, res)
	}
	return results
}

func TestAPI_SessionWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv := New(Config{App: newTestApp(t, nil)})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	// 1. Start a left-arm session
	resp, err := client.Post(ts.URL+"/api/sessions", "application/json",
		bytes.NewBufferString(`{"name": "physio", "side": "left"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID   string `json:"id"`
		Side string `json:"side"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "left", created.Side)

	// 2. Stream a recording frame by frame
	results := postRecording(t, client, ts.URL+"/api/sessions/"+created.ID+"/frames", testdata.ThreeWavesLandmarks)
	completed := 0
	for _, res := range results {
		if res.Completed {
			completed++
		}
	}
	assert.Equal(t, 3, completed)
	assert.Equal(t, 3, results[len(results)-1].Count)

	// 3. Summary reflects the stored repetitions
	resp, err = client.Get(ts.URL + "/api/sessions/" + created.ID + "/summary")
	require.NoError(t, err)
	var summary struct {
		Repetitions     int     `json:"repetitions"`
		BestPerformance float64 `json:"best_performance"`
		MeanFrames      float64 `json:"mean_frames"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	assert.Equal(t, 3, summary.Repetitions)
	// Fixture coordinates are rounded, so the angle is not exact.
	assert.InDelta(t, 70.0/60.0*100, summary.BestPerformance, 1e-3)
	assert.InDelta(t, 9.0, summary.MeanFrames, 1e-9)

	// 4. Delete and verify
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+created.ID, nil)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/api/sessions/" + created.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_LiveFeed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	m := metrics.NewTestManager()
	a := newTestApp(t, m)
	srv := New(Config{App: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	defer srv.Close()

	session, err := a.StartSession(app.DefaultSessionOptions())
	require.NoError(t, err)
	other, err := a.StartSession(app.DefaultSessionOptions())
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live?session=" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.Live().Clients() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Frames of another session are filtered out.
	postRecording(t, ts.Client(), ts.URL+"/api/sessions/"+other.ID+"/frames", testdata.SingleWave)
	results := postRecording(t, ts.Client(), ts.URL+"/api/sessions/"+session.ID+"/frames", testdata.SingleWave)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := range results {
		var msg LiveMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, session.ID, msg.SessionID)
		assert.Equal(t, results[i], msg.Result, "frame %d", i)
	}

	conn.Close()
	require.Eventually(t, func() bool {
		return srv.Live().Clients() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
