// Package loader implements the HTTP-backed LOAD JSON/CSV/TEXT
// contract spec §1 scopes out of the core as opaque: "given a URL and
// optional POST body, yield a lazy sequence of records." No retrieved
// example repo supplies a narrower-purpose HTTP/CSV/JSON client for
// this shape, so this package is a deliberate standard-library island
// (net/http, encoding/json, encoding/csv) -- see DESIGN.md.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/value"
)

// HTTPLoader implements operation.Loader against a real HTTP client.
type HTTPLoader struct {
	Client *http.Client
	Log    *logrus.Entry
}

// NewHTTPLoader builds an HTTPLoader with a sane default timeout (spec
// §9's default-loader-timeout config knob; the session/engine package
// overrides Client.Timeout from its Config).
func NewHTTPLoader(log *logrus.Entry) *HTTPLoader {
	return &HTTPLoader{
		Client: &http.Client{Timeout: 30 * time.Second},
		Log:    log,
	}
}

func (l *HTTPLoader) Load(ctx context.Context, format, url string, body, headers value.Value) ([]value.Value, error) {
	method := http.MethodGet
	var reader io.Reader
	if !body.IsNull() {
		method = http.MethodPost
		reader = bytes.NewReader([]byte(value.ToString(body)))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fqerrors.External.New(fmt.Sprintf("building load request: %s", err))
	}
	if headers.Kind == value.Map {
		for _, k := range headers.Map().Keys() {
			v, _ := headers.Map().Get(k)
			req.Header.Set(k, value.ToString(v))
		}
	}

	l.Log.WithFields(logrus.Fields{"format": format, "url": url, "method": method}).Info("loader request")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fqerrors.External.New(fmt.Sprintf("load request failed: %s", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fqerrors.External.New(fmt.Sprintf("load request returned status %d", resp.StatusCode))
	}

	switch format {
	case "JSON":
		return loadJSON(resp.Body)
	case "CSV":
		return loadCSV(resp.Body)
	case "TEXT":
		return loadText(resp.Body)
	default:
		return nil, fqerrors.External.New(fmt.Sprintf("unknown LOAD format %q", format))
	}
}

func loadJSON(r io.Reader) ([]value.Value, error) {
	var raw interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fqerrors.External.New(fmt.Sprintf("decoding JSON response: %s", err))
	}
	switch v := raw.(type) {
	case []interface{}:
		out := make([]value.Value, len(v))
		for i, item := range v {
			out[i] = fromJSON(item)
		}
		return out, nil
	default:
		return []value.Value{fromJSON(raw)}, nil
	}
}

func fromJSON(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.NewNull()
	case bool:
		return value.NewBool(t)
	case float64:
		if t == float64(int64(t)) {
			return value.NewInt(int64(t))
		}
		return value.NewFloat(t)
	case string:
		return value.NewString(t)
	case []interface{}:
		items := make([]value.Value, len(t))
		for i, item := range t {
			items[i] = fromJSON(item)
		}
		return value.NewList(items)
	case map[string]interface{}:
		om := value.NewOrderedMap()
		for k, item := range t {
			om.Set(k, fromJSON(item))
		}
		return value.NewMap(om)
	default:
		return value.NewNull()
	}
}

func loadCSV(r io.Reader) ([]value.Value, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fqerrors.External.New(fmt.Sprintf("reading CSV header: %s", err))
	}
	var out []value.Value
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fqerrors.External.New(fmt.Sprintf("reading CSV row: %s", err))
		}
		om := value.NewOrderedMap()
		for i, col := range header {
			if i < len(row) {
				om.Set(col, value.NewString(row[i]))
			}
		}
		out = append(out, value.NewMap(om))
	}
	return out, nil
}

func loadText(r io.Reader) ([]value.Value, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var out []value.Value
	for scanner.Scan() {
		out = append(out, value.NewString(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fqerrors.External.New(fmt.Sprintf("reading TEXT response: %s", err))
	}
	return out, nil
}
