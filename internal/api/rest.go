// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/hdc-arizona/traveler-integrated/internal/config"
	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/internal/deptree"
	"github.com/hdc-arizona/traveler-integrated/internal/ingest"
	"github.com/hdc-arizona/traveler-integrated/internal/query"
	"github.com/hdc-arizona/traveler-integrated/pkg/log"
	"github.com/hdc-arizona/traveler-integrated/pkg/lrucache"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// RestApi exposes the dataset store and query facade over HTTP. Streaming
// endpoints (intervals, traces, ingest logs) write incrementally and flush;
// a closed connection simply ends the stream, queries are read-only.
type RestApi struct {
	Store  *datastore.Store
	Events *EventPublisher

	cache *lrucache.Cache
}

func New(store *datastore.Store, events *EventPublisher) *RestApi {
	return &RestApi{
		Store:  store,
		Events: events,
		cache:  lrucache.New(config.Keys.MaxCacheSize),
	}
}

func (api *RestApi) MountRoutes(r *mux.Router) {
	r.StrictSlash(true)

	r.HandleFunc("/datasets", api.getDatasets).Methods(http.MethodGet)
	r.HandleFunc("/datasets", api.createDataset).Methods(http.MethodPost)
	r.HandleFunc("/datasets/{datasetId}", api.getDataset).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}", api.deleteDataset).Methods(http.MethodDelete)
	r.HandleFunc("/datasets/{datasetId}/info", api.updateInfo).Methods(http.MethodPut)
	r.HandleFunc("/tags/{tag}", api.addTagToAll).Methods(http.MethodPost)

	r.HandleFunc("/datasets/{datasetId}/tree", api.getTree).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/newick", api.uploadNewick).Methods(http.MethodPost)
	r.HandleFunc("/datasets/{datasetId}/csv", api.uploadCsv).Methods(http.MethodPost)
	r.HandleFunc("/datasets/{datasetId}/dot", api.uploadDot).Methods(http.MethodPost)
	r.HandleFunc("/datasets/{datasetId}/log", api.uploadLog).Methods(http.MethodPost)
	r.HandleFunc("/datasets/{datasetId}/otf2", api.uploadEventDump).Methods(http.MethodPost)
	r.HandleFunc("/datasets/{datasetId}/{codeType:physl|python|cpp}", api.getCode).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/{codeType:physl|python|cpp}", api.uploadCode).Methods(http.MethodPost)

	r.HandleFunc("/datasets/{datasetId}/primitives", api.getPrimitives).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/primitives/primitiveTraceForward", api.primitiveTraceForward).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/primitives/{primitive}", api.getPrimitive).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/primitives/{primitive}/utilization", api.getPrimitiveUtilization).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/primitives/{primitive}/intervalHistogram", api.getIntervalHistogram).Methods(http.MethodGet)

	r.HandleFunc("/datasets/{datasetId}/intervals", InstrumentRoute("intervals", api.getIntervals)).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/intervals/{intervalId}", api.getInterval).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/intervals/{intervalId}/trace", InstrumentRoute("intervalTrace", api.getIntervalTrace)).Methods(http.MethodGet)

	r.HandleFunc("/datasets/{datasetId}/metrics", api.getMetrics).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/metrics/{metric}", api.getMetricValues).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/metrics/{metric}/summary", api.getMetricSummary).Methods(http.MethodGet)

	r.HandleFunc("/datasets/{datasetId}/utilizationHistogram", InstrumentRoute("utilizationHistogram", api.getUtilizationHistogram)).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{datasetId}/getDependencyTree", api.getDependencyTree).Methods(http.MethodGet)
}

// ErrorResponse model
type ErrorResponse struct {
	// Statustext of Errorcode
	Status string `json:"status"`
	Error  string `json:"error"` // Error Message
}

func handleError(err error, statusCode int, rw http.ResponseWriter) {
	log.Warnf("REST ERROR : %s", err.Error())
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(ErrorResponse{
		Status: http.StatusText(statusCode),
		Error:  err.Error(),
	})
}

// handleDatasetError maps store errors onto status codes: unknown entities
// are 404s, inputs that are still loading are 503s.
func handleDatasetError(err error, rw http.ResponseWriter) {
	var notReady *datastore.NotReadyError
	var missing *datastore.MissingSourceError
	switch {
	case errors.As(err, &notReady):
		handleError(err, http.StatusServiceUnavailable, rw)
	case errors.As(err, &missing):
		handleError(err, http.StatusNotFound, rw)
	case errors.Is(err, datastore.ErrNotFound):
		handleError(err, http.StatusNotFound, rw)
	default:
		handleError(err, http.StatusInternalServerError, rw)
	}
}

func decode(r io.Reader, val interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(val)
}

// Query parameter helpers. Timestamps are i64; bins defaults to 100.

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s: %w", name, err)
	}
	return v, nil
}

func int64Param(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("query parameter %s: %w", name, err)
	}
	return &v, nil
}

func locationsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("locations")
	if raw == "" {
		raw = r.URL.Query().Get("location")
	}
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// validate wraps Store.Validate for handlers.
func (api *RestApi) validate(r *http.Request, requiredFiles, mustBeReady []string, allReady bool) (*datastore.Dataset, error) {
	return api.Store.Validate(mux.Vars(r)["datasetId"], requiredFiles, mustBeReady, allReady)
}

/* DATASET LIFECYCLE */

func (api *RestApi) getDatasets(rw http.ResponseWriter, r *http.Request) {
	infos := []*schema.DatasetInfo{}
	for _, ds := range api.Store.List() {
		infos = append(infos, ds.Info)
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(infos)
}

func (api *RestApi) getDataset(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, nil, nil, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(ds.Info)
}

// BasicDataset model: pre-parsed source texts for one-shot dataset creation.
type BasicDataset struct {
	Label  string   `json:"label"`
	Newick string   `json:"newick,omitempty"`
	Csv    string   `json:"csv,omitempty"`
	Dot    string   `json:"dot,omitempty"`
	Physl  string   `json:"physl,omitempty"`
	Python string   `json:"python,omitempty"`
	Cpp    string   `json:"cpp,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

func (api *RestApi) createDataset(rw http.ResponseWriter, r *http.Request) {
	req := BasicDataset{Label: schema.DefaultLabel}
	if r.ContentLength != 0 {
		if err := decode(r.Body, &req); err != nil {
			handleError(fmt.Errorf("parsing request body failed: %w", err), http.StatusBadRequest, rw)
			return
		}
	}

	ds, err := api.Store.Create()
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	datasetID := ds.Info.DatasetID
	api.Store.Rename(datasetID, req.Label)
	if len(req.Tags) > 0 {
		tags := map[string]bool{}
		for _, t := range req.Tags {
			tags[t] = true
		}
		api.Store.AddTags(datasetID, tags)
	}
	api.Events.Publish("created", datasetID)

	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(http.StatusCreated)
	api.streamIngest(rw, r, func(logger *ingest.ClientLogger) error {
		logger.Logf("Created dataset %s", datasetID)
		if req.Newick != "" {
			if err := ingest.ProcessNewickSource(api.Store, datasetID, req.Label+".newick", strings.NewReader(req.Newick), logger); err != nil {
				return err
			}
		}
		if req.Csv != "" {
			if err := ingest.ProcessCsvSource(api.Store, datasetID, req.Label+".csv", strings.NewReader(req.Csv), logger); err != nil {
				return err
			}
		}
		if req.Dot != "" {
			if err := ingest.ProcessDotSource(api.Store, datasetID, req.Label+".dot", strings.NewReader(req.Dot), logger); err != nil {
				return err
			}
		}
		for codeType, text := range map[string]string{"physl": req.Physl, "python": req.Python, "cpp": req.Cpp} {
			if text == "" {
				continue
			}
			if err := ingest.ProcessCodeSource(api.Store, datasetID, req.Label+"."+codeType, codeType, strings.NewReader(text), logger); err != nil {
				return err
			}
		}
		return api.Store.Save(datasetID)
	})
}

func (api *RestApi) deleteDataset(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, nil, nil, true)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	datasetID := ds.Info.DatasetID
	if err := api.Store.Delete(datasetID); err != nil {
		handleDatasetError(err, rw)
		return
	}
	api.Events.Publish("deleted", datasetID)
	rw.WriteHeader(http.StatusOK)
}

func (api *RestApi) updateInfo(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, nil, nil, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	datasetID := ds.Info.DatasetID
	if label := r.URL.Query().Get("label"); label != "" {
		api.Store.Rename(datasetID, label)
	}
	if r.URL.Query().Has("tags") {
		tags := map[string]bool{}
		if raw := r.URL.Query().Get("tags"); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				tags[t] = true
			}
		}
		api.Store.SetTags(datasetID, tags)
	}
	if err := api.Store.Save(datasetID); err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	rw.WriteHeader(http.StatusOK)
}

func (api *RestApi) addTagToAll(rw http.ResponseWriter, r *http.Request) {
	api.Store.AddTagToAll(mux.Vars(r)["tag"])
	rw.WriteHeader(http.StatusOK)
}

/* INGEST */

// streamIngest runs one ingest operation while streaming its log lines back
// as a JSON array. The client watching the array sees progress live. The
// event-dump ingest runs under the request's context, so closing the
// connection cancels it at its next cancellation check.
func (api *RestApi) streamIngest(rw http.ResponseWriter, r *http.Request, run func(logger *ingest.ClientLogger) error) {
	logger := ingest.NewClientLogger()
	done := make(chan error, 1)
	go func() {
		err := run(logger)
		if err != nil {
			logger.Logf("ERROR: %v", err)
		}
		logger.Finish()
		done <- err
	}()

	rw.Header().Add("Content-Type", "application/json")
	flusher, _ := rw.(http.Flusher)
	io.WriteString(rw, "[")
	first := true
	for {
		messages, finished := logger.Drain()
		for _, message := range messages {
			if !first {
				io.WriteString(rw, ",")
			}
			first = false
			blob, _ := json.Marshal(message)
			rw.Write(blob)
		}
		if flusher != nil {
			flusher.Flush()
		}
		if finished {
			break
		}
		logger.Wait()
	}
	io.WriteString(rw, "]")
	if err := <-done; err != nil {
		log.Warnf("ingest failed: %v", err)
	}
}

func (api *RestApi) uploadSource(rw http.ResponseWriter, r *http.Request, fileType string, run func(datasetID, fileName string, logger *ingest.ClientLogger) error) {
	ds, err := api.validate(r, nil, nil, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	datasetID := ds.Info.DatasetID
	fileName := r.URL.Query().Get("filename")
	if fileName == "" {
		fileName = ds.Info.Label + "." + fileType
	}
	api.streamIngest(rw, r, func(logger *ingest.ClientLogger) error {
		err := run(datasetID, fileName, logger)
		if err == nil {
			api.Events.Publish("sourceReady", datasetID)
		}
		return err
	})
}

func (api *RestApi) uploadNewick(rw http.ResponseWriter, r *http.Request) {
	api.uploadSource(rw, r, "newick", func(datasetID, fileName string, logger *ingest.ClientLogger) error {
		return ingest.ProcessNewickSource(api.Store, datasetID, fileName, r.Body, logger)
	})
}

func (api *RestApi) uploadCsv(rw http.ResponseWriter, r *http.Request) {
	api.uploadSource(rw, r, "csv", func(datasetID, fileName string, logger *ingest.ClientLogger) error {
		return ingest.ProcessCsvSource(api.Store, datasetID, fileName, r.Body, logger)
	})
}

func (api *RestApi) uploadDot(rw http.ResponseWriter, r *http.Request) {
	api.uploadSource(rw, r, "dot", func(datasetID, fileName string, logger *ingest.ClientLogger) error {
		return ingest.ProcessDotSource(api.Store, datasetID, fileName, r.Body, logger)
	})
}

func (api *RestApi) uploadLog(rw http.ResponseWriter, r *http.Request) {
	api.uploadSource(rw, r, "log", func(datasetID, fileName string, logger *ingest.ClientLogger) error {
		return ingest.ProcessLogSource(api.Store, datasetID, fileName, r.Body, logger)
	})
}

func (api *RestApi) uploadEventDump(rw http.ResponseWriter, r *http.Request) {
	api.uploadSource(rw, r, "otf2", func(datasetID, fileName string, logger *ingest.ClientLogger) error {
		return ingest.ProcessEventDump(r.Context(), api.Store, datasetID, "APEX.otf2", r.Body, dependencyTreeFilter(), logger)
	})
}

func (api *RestApi) uploadCode(rw http.ResponseWriter, r *http.Request) {
	codeType := mux.Vars(r)["codeType"]
	api.uploadSource(rw, r, codeType, func(datasetID, fileName string, logger *ingest.ClientLogger) error {
		return ingest.ProcessCodeSource(api.Store, datasetID, fileName, codeType, r.Body, logger)
	})
}

func dependencyTreeFilter() deptree.IncludeFilter {
	if config.Keys.DependencyTreeFilter == "flagged" {
		return deptree.FilterFlagged
	}
	return deptree.FilterAPEXMain
}

/* SOURCES */

func (api *RestApi) getTree(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, nil, nil, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "newick"
	}
	tree, ok := ds.Trees[source]
	if !ok {
		handleError(fmt.Errorf("dataset does not contain %s tree data", source), http.StatusNotFound, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(tree)
}

func (api *RestApi) getCode(rw http.ResponseWriter, r *http.Request) {
	codeType := mux.Vars(r)["codeType"]
	ds, err := api.validate(r, []string{codeType}, []string{codeType}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(ds.Code[codeType])
}

/* PRIMITIVES */

func (api *RestApi) getPrimitives(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, nil, nil, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(ds.Primitives)
}

func (api *RestApi) getPrimitive(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, nil, nil, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	prim, ok := ds.Primitives[mux.Vars(r)["primitive"]]
	if !ok {
		handleError(fmt.Errorf("unknown primitive: %s", mux.Vars(r)["primitive"]), http.StatusNotFound, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(prim)
}

/* QUERIES */

// histogramMetadata echoes the effective query window.
type histogramMetadata struct {
	Begin int64 `json:"begin"`
	End   int64 `json:"end"`
	Bins  int   `json:"bins"`
}

func (api *RestApi) getUtilizationHistogram(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	bins, err := intParam(r, "bins", 100)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	beginP, err := int64Param(r, "begin")
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	endP, err := int64Param(r, "end")
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}

	q := query.New(ds)
	begin, end := q.DefaultRange(beginP, endP)
	primitive := r.URL.Query().Get("primitive")
	locations := locationsParam(r)

	blob := api.cache.Get(r.URL.RequestURI(), func() ([]byte, time.Duration, int) {
		data, err := q.UtilizationHistogram(bins, begin, end, locations, primitive)
		if err != nil {
			return nil, 0, 0
		}
		payload := map[string]interface{}{
			"data":     data,
			"metadata": histogramMetadata{Begin: begin, End: end, Bins: bins},
		}
		blob, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, 0
		}
		return blob, time.Hour, len(blob)
	})
	if blob == nil {
		handleError(fmt.Errorf("no utilization data for request"), http.StatusNotFound, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	rw.Write(blob)
}

func (api *RestApi) getPrimitiveUtilization(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	bins, err := intParam(r, "bins", 100)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	durationBins, err := intParam(r, "duration_bins", 100)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	beginP, _ := int64Param(r, "begin")
	endP, _ := int64Param(r, "end")

	q := query.New(ds)
	begin, end := q.DefaultRange(beginP, endP)
	primitive := mux.Vars(r)["primitive"]

	matrix, err := q.PrimitiveUtilization(primitive, bins, begin, end, durationBins)
	if err != nil {
		if errors.Is(err, query.ErrNoData) {
			handleError(fmt.Errorf("no utilization data for primitive: %s", primitive), http.StatusNotFound, rw)
		} else {
			handleError(err, http.StatusInternalServerError, rw)
		}
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]interface{}{
		"data":     matrix,
		"metadata": histogramMetadata{Begin: begin, End: end, Bins: bins},
	})
}

func (api *RestApi) getIntervalHistogram(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	primitive := mux.Vars(r)["primitive"]
	if ds.Suls == nil {
		handleError(fmt.Errorf("dataset has no utilization data"), http.StatusNotFound, rw)
		return
	}
	hist, ok := ds.Suls.IntervalHistograms[primitive]
	if !ok {
		handleError(fmt.Errorf("no interval durations for primitive: %s", primitive), http.StatusNotFound, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(hist)
}

func (api *RestApi) getMetrics(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, nil, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	list := ds.Info.ProcMetricList
	if list == nil {
		list = []string{}
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(list)
}

func (api *RestApi) getMetricValues(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	metric := mux.Vars(r)["metric"]
	samples, ok := ds.ProcMetrics[metric]
	if !ok {
		handleError(fmt.Errorf("unknown metric: %s", metric), http.StatusNotFound, rw)
		return
	}
	beginP, _ := int64Param(r, "begin")
	endP, _ := int64Param(r, "end")
	q := query.New(ds)
	begin, end := q.DefaultRange(beginP, endP)

	rw.Header().Add("Content-Type", "application/json")
	io.WriteString(rw, "[")
	first := true
	for _, point := range schema.SortedMetricTimestamps(samples) {
		if point.Timestamp < begin || point.Timestamp > end {
			continue
		}
		if !first {
			io.WriteString(rw, ",")
		}
		first = false
		blob, _ := json.Marshal(point)
		rw.Write(blob)
	}
	io.WriteString(rw, "]")
}

func (api *RestApi) getMetricSummary(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	bins, err := intParam(r, "bins", 100)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	beginP, _ := int64Param(r, "begin")
	endP, _ := int64Param(r, "end")
	metric := mux.Vars(r)["metric"]
	locations := locationsParam(r)

	q := query.New(ds)
	begin, end := q.DefaultRange(beginP, endP)

	var payload interface{}
	if len(locations) == 1 {
		payload, err = q.MetricSeries(metric, bins, begin, end, locations[0])
	} else {
		payload, err = q.MetricSummary(metric, bins, begin, end)
	}
	if err != nil {
		handleError(fmt.Errorf("no data for metric: %s", metric), http.StatusNotFound, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]interface{}{
		"data":     payload,
		"metadata": histogramMetadata{Begin: begin, End: end, Bins: bins},
	})
}

func (api *RestApi) getIntervals(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	beginP, _ := int64Param(r, "begin")
	endP, _ := int64Param(r, "end")
	minDur, err := int64Param(r, "minDuration")
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	maxDur, err := int64Param(r, "maxDuration")
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}

	q := query.New(ds)
	begin, end := q.DefaultRange(beginP, endP)
	flt := query.IntervalFilter{
		Location:    r.URL.Query().Get("location"),
		Primitive:   r.URL.Query().Get("primitive"),
		Guid:        r.URL.Query().Get("guid"),
		MinDuration: minDur,
		MaxDuration: maxDur,
	}

	rw.Header().Add("Content-Type", "application/json")
	flusher, _ := rw.(http.Flusher)
	io.WriteString(rw, "[")
	first := true
	count := 0
	err = q.ListIntervals(begin, end, flt, func(iv *schema.Interval) bool {
		if !first {
			io.WriteString(rw, ",")
		}
		first = false
		blob, err := json.Marshal(iv)
		if err != nil {
			return false
		}
		if _, err := rw.Write(blob); err != nil {
			// Client went away; the stream ends at the next yield.
			return false
		}
		count++
		if flusher != nil && count%2500 == 0 {
			flusher.Flush()
		}
		return true
	})
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	io.WriteString(rw, "]")
}

func (api *RestApi) getInterval(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	iv := query.New(ds).GetInterval(mux.Vars(r)["intervalId"])
	rw.Header().Add("Content-Type", "application/json")
	if iv == nil {
		io.WriteString(rw, "null")
		return
	}
	json.NewEncoder(rw).Encode(iv)
}

func (api *RestApi) getIntervalTrace(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	beginP, _ := int64Param(r, "begin")
	endP, _ := int64Param(r, "end")
	q := query.New(ds)
	begin, end := q.DefaultRange(beginP, endP)

	trace, err := q.IntervalTrace(mux.Vars(r)["intervalId"], begin, end)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}

	// Ancestors stream first, children before parents; then descendants,
	// parents before children.
	rw.Header().Add("Content-Type", "application/json")
	io.WriteString(rw, `{"ancestors":{`)
	writeTraceEntries(rw, trace.Ancestors)
	io.WriteString(rw, `},"descendants":{`)
	writeTraceEntries(rw, trace.Descendants)
	io.WriteString(rw, "}}")
}

func writeTraceEntries(rw http.ResponseWriter, entries []query.TraceEntry) {
	for i, entry := range entries {
		if i > 0 {
			io.WriteString(rw, ",")
		}
		key, _ := json.Marshal(entry.ID)
		rw.Write(key)
		io.WriteString(rw, ":")
		blob, _ := json.Marshal(entry.Node)
		rw.Write(blob)
	}
}

func (api *RestApi) primitiveTraceForward(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	nodeID := r.URL.Query().Get("nodeId")
	if nodeID == "" {
		handleError(fmt.Errorf("query parameter nodeId is required"), http.StatusBadRequest, rw)
		return
	}
	bins, err := intParam(r, "bins", 100)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	beginP, _ := int64Param(r, "begin")
	endP, _ := int64Param(r, "end")

	q := query.New(ds)
	begin, end := q.DefaultRange(beginP, endP)
	records, err := q.PrimitiveTraceForward(nodeID, bins, begin, end, locationsParam(r))
	if err != nil {
		if errors.Is(err, query.ErrNoData) {
			handleError(fmt.Errorf("unknown dependency tree node: %s", nodeID), http.StatusNotFound, rw)
		} else {
			handleError(err, http.StatusInternalServerError, rw)
		}
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]interface{}{
		"data":     records,
		"metadata": histogramMetadata{Begin: begin, End: end, Bins: bins},
	})
}

func (api *RestApi) getDependencyTree(rw http.ResponseWriter, r *http.Request) {
	ds, err := api.validate(r, []string{"otf2"}, []string{"otf2"}, false)
	if err != nil {
		handleDatasetError(err, rw)
		return
	}
	tree, err := query.New(ds).DependencyTree()
	if err != nil {
		handleError(fmt.Errorf("dataset has no dependency tree"), http.StatusNotFound, rw)
		return
	}
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(tree)
}
