// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hdc-arizona/traveler-integrated/internal/api"
	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

const eventDump = `
ENTER 1 100 Region: "A"
ENTER 1 150 Region: "B"
LEAVE 1 200 Region: "B"
LEAVE 1 300 Region: "A"
`

func setup(t *testing.T) (*mux.Router, *datastore.Store) {
	t.Helper()
	store, err := datastore.NewStore(t.TempDir(), false)
	require.NoError(t, err)
	restAPI := api.New(store, nil)
	router := mux.NewRouter()
	restAPI.MountRoutes(router)
	return router, store
}

func doRequest(router *mux.Router, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func createDataset(t *testing.T, router *mux.Router, label string) string {
	t.Helper()
	response := doRequest(router, http.MethodPost, "/datasets", fmt.Sprintf(`{"label": %q}`, label))
	require.Equal(t, http.StatusCreated, response.Code)

	listing := doRequest(router, http.MethodGet, "/datasets", "")
	require.Equal(t, http.StatusOK, listing.Code)
	var infos []schema.DatasetInfo
	require.NoError(t, json.Unmarshal(listing.Body.Bytes(), &infos))
	for _, info := range infos {
		if info.Label == label {
			return info.DatasetID
		}
	}
	t.Fatalf("created dataset %q not listed", label)
	return ""
}

func ingestTrace(t *testing.T, router *mux.Router, datasetID string) {
	t.Helper()
	response := doRequest(router, http.MethodPost, "/datasets/"+datasetID+"/otf2", eventDump)
	require.Equal(t, http.StatusOK, response.Code)
	// The response streams the ingest log as a JSON array of strings.
	var messages []string
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &messages))
	require.NotEmpty(t, messages)
	for _, message := range messages {
		assert.NotContains(t, message, "ERROR")
	}
}

func TestDatasetLifecycle(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "lifecycle")

	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID, "")
	require.Equal(t, http.StatusOK, response.Code)
	var info schema.DatasetInfo
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &info))
	assert.Equal(t, "lifecycle", info.Label)

	// Lookup by label resolves too.
	response = doRequest(router, http.MethodGet, "/datasets/lifecycle", "")
	assert.Equal(t, http.StatusOK, response.Code)

	response = doRequest(router, http.MethodGet, "/datasets/unknown", "")
	assert.Equal(t, http.StatusNotFound, response.Code)

	response = doRequest(router, http.MethodDelete, "/datasets/"+datasetID, "")
	require.Equal(t, http.StatusOK, response.Code)
	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID, "")
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestIntervalEndpointsRequireTrace(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "empty")

	// No otf2 source at all: 404 with the missing types listed.
	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals", "")
	require.Equal(t, http.StatusNotFound, response.Code)
	assert.Contains(t, response.Body.String(), "otf2")
}

func TestStillLoadingReturns503(t *testing.T) {
	router, store := setup(t)
	datasetID := createDataset(t, router, "loading")
	require.NoError(t, store.AddSourceFile(datasetID, "APEX.otf2", "otf2"))

	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals", "")
	assert.Equal(t, http.StatusServiceUnavailable, response.Code)
	assert.Contains(t, response.Body.String(), "otf2")
}

func TestTraceIngestAndIntervalQueries(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "trace")
	ingestTrace(t, router, datasetID)

	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals", "")
	require.Equal(t, http.StatusOK, response.Code)
	var ivs []map[string]interface{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &ivs))
	require.Len(t, ivs, 3)
	for _, iv := range ivs {
		assert.Contains(t, iv, "intervalId")
		assert.Contains(t, iv, "enter")
		assert.Contains(t, iv, "leave")
	}

	// Range queries clip: only B overlaps [150, 160]; A's first fragment
	// ends at 149 and its remainder starts at 201.
	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals?begin=150&end=160", "")
	require.Equal(t, http.StatusOK, response.Code)
	ivs = nil
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &ivs))
	assert.Len(t, ivs, 1)

	// Primitive filter.
	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals?primitive=B", "")
	ivs = nil
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &ivs))
	require.Len(t, ivs, 1)
	assert.Equal(t, "B", ivs[0]["Primitive"])

	// Single interval lookup; unknown ids are null.
	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals/0", "")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), `"intervalId"`)
	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals/99", "")
	assert.Equal(t, "null", strings.TrimSpace(response.Body.String()))
}

func TestUtilizationHistogramEndpoint(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "histogram")
	ingestTrace(t, router, datasetID)

	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/utilizationHistogram?bins=2", "")
	require.Equal(t, http.StatusOK, response.Code)

	var payload struct {
		Data     []float64 `json:"data"`
		Metadata struct {
			Begin int64 `json:"begin"`
			End   int64 `json:"end"`
			Bins  int   `json:"bins"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 2)
	assert.Equal(t, int64(100), payload.Metadata.Begin)
	assert.Equal(t, int64(300), payload.Metadata.End)

	// The dummy-leave pairing keeps per-location concurrency at one, with
	// one-tick gaps around the nested interval.
	assert.InDelta(t, 0.99, payload.Data[0], 1e-9)
	assert.InDelta(t, 0.99, payload.Data[1], 1e-9)
}

func TestIntervalTraceEndpoint(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "tracewalk")
	ingestTrace(t, router, datasetID)

	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/intervals/0/trace", "")
	require.Equal(t, http.StatusOK, response.Code)

	var payload struct {
		Ancestors   map[string]map[string]interface{} `json:"ancestors"`
		Descendants map[string]map[string]interface{} `json:"descendants"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &payload))
	require.Contains(t, payload.Ancestors, "0")
	require.Contains(t, payload.Descendants, "0")
	assert.Equal(t, float64(100), payload.Ancestors["0"]["enter"])
}

func TestPrimitivesEndpoint(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "prims")
	ingestTrace(t, router, datasetID)

	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/primitives", "")
	require.Equal(t, http.StatusOK, response.Code)
	var prims map[string]schema.Primitive
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &prims))
	assert.Contains(t, prims, "A")
	assert.Contains(t, prims, "B")

	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/primitives/A", "")
	assert.Equal(t, http.StatusOK, response.Code)
	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/primitives/missing", "")
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestDependencyTreeEndpoint(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "deptree")
	ingestTrace(t, router, datasetID)

	response := doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/getDependencyTree", "")
	require.Equal(t, http.StatusOK, response.Code)
	var tree struct {
		Name     string `json:"name"`
		Children []struct {
			Name   string `json:"name"`
			NodeID string `json:"nodeId"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &tree))
	assert.Equal(t, "root", tree.Name)
	require.NotEmpty(t, tree.Children)

	// primitiveTraceForward accepts the node ids the tree hands out.
	response = doRequest(router, http.MethodGet,
		"/datasets/"+datasetID+"/primitives/primitiveTraceForward?nodeId="+tree.Children[0].NodeID, "")
	assert.Equal(t, http.StatusOK, response.Code)
}

func TestCsvUploadAndInfoUpdate(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "perf")

	csv := `primitive_instance,display_name,count,time,eval_direct
"A","a",4,400,-1
`
	response := doRequest(router, http.MethodPost, "/datasets/"+datasetID+"/csv", csv)
	require.Equal(t, http.StatusOK, response.Code)

	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/primitives/A", "")
	require.Equal(t, http.StatusOK, response.Code)
	var prim schema.Primitive
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &prim))
	assert.Equal(t, int64(4), prim.Count)
	assert.Equal(t, 100.0, prim.AvgTime)

	response = doRequest(router, http.MethodPut, "/datasets/"+datasetID+"/info?label=renamed&tags=x,y", "")
	require.Equal(t, http.StatusOK, response.Code)
	response = doRequest(router, http.MethodGet, "/datasets/renamed", "")
	require.Equal(t, http.StatusOK, response.Code)
	var info schema.DatasetInfo
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &info))
	assert.True(t, info.Tags["x"])
	assert.True(t, info.Tags["y"])
}

func TestCodeUploadRoundTrip(t *testing.T) {
	router, _ := setup(t)
	datasetID := createDataset(t, router, "code")

	response := doRequest(router, http.MethodPost, "/datasets/"+datasetID+"/python", "print('hi')")
	require.Equal(t, http.StatusOK, response.Code)

	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/python", "")
	require.Equal(t, http.StatusOK, response.Code)
	var text string
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &text))
	assert.Equal(t, "print('hi')", text)

	// Types never uploaded 404.
	response = doRequest(router, http.MethodGet, "/datasets/"+datasetID+"/cpp", "")
	assert.Equal(t, http.StatusNotFound, response.Code)
}
