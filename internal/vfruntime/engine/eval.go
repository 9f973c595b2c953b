package engine

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// EvaluateTask runs req.Task to completion given its already-resolved
// parent values, the shared logic both the in-memory and Temporal engines
// delegate to (spec.md §4.4's three task variants).
func EvaluateTask(req NodeRequest) (vfvalue.TaskValue, error) {
	switch req.Task.Kind {
	case vftaskgraph.TaskValue:
		return req.Task.Value, nil
	case vftaskgraph.TaskScanURL:
		return scanURL(req.Task.URL, req.Task.Format)
	case vftaskgraph.TaskTransforms:
		return evalTransforms(req)
	}
	return vfvalue.TaskValue{}, vferrors.Newf(vferrors.KindInternal, "unknown task kind %d", req.Task.Kind)
}

func evalTransforms(req NodeRequest) (vfvalue.TaskValue, error) {
	var table *vfvalue.Table
	if len(req.ParentValues) > 0 {
		t, err := req.ParentValues[0].AsTable()
		if err != nil {
			return vfvalue.TaskValue{}, vferrors.Wrap(vferrors.KindInternal, "transform input must be a table", err)
		}
		table = t
	} else {
		table = vfvalue.NewTable(vfvalue.Schema{}, nil)
	}
	out, _, err := req.Task.Pipeline.Eval(table, req.Config)
	if err != nil {
		return vfvalue.TaskValue{}, err
	}
	return vfvalue.NewTableValue(out), nil
}

// scanURL fetches a CSV or JSON-array data source and decodes it into a
// Table — the one place task evaluation performs real network I/O (spec.md
// §2's "ScanUrl" task kind).
func scanURL(url, format string) (vfvalue.TaskValue, error) {
	resp, err := http.Get(url) //nolint:gosec // url is operator-supplied spec content, not attacker input
	if err != nil {
		return vfvalue.TaskValue{}, vferrors.Wrap(vferrors.KindExternal, "fetching data url", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return vfvalue.TaskValue{}, vferrors.Newf(vferrors.KindExternal, "fetching data url %q: status %d", url, resp.StatusCode)
	}
	switch format {
	case "json", "":
		return decodeJSONRows(resp.Body)
	case "csv":
		return decodeCSVRows(resp.Body)
	default:
		return vfvalue.TaskValue{}, vferrors.Newf(vferrors.KindSpecification, "unsupported scan format %q", format)
	}
}

func decodeJSONRows(r io.Reader) (vfvalue.TaskValue, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return vfvalue.TaskValue{}, vferrors.Wrap(vferrors.KindParse, "decoding JSON data source", err)
	}
	return vfvalue.NewTableValue(rowsToTable(rows)), nil
}

func decodeCSVRows(r io.Reader) (vfvalue.TaskValue, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return vfvalue.TaskValue{}, vferrors.Wrap(vferrors.KindParse, "decoding CSV data source", err)
	}
	if len(records) == 0 {
		return vfvalue.NewTableValue(vfvalue.NewTable(vfvalue.Schema{}, nil)), nil
	}
	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = parseCSVCell(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return vfvalue.NewTableValue(rowsToTable(rows)), nil
}

func parseCSVCell(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func rowsToTable(rows []map[string]any) *vfvalue.Table {
	fieldOrder := []string{}
	seen := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				fieldOrder = append(fieldOrder, k)
			}
		}
	}
	fields := make([]vfvalue.Field, len(fieldOrder))
	cols := make([][]any, len(fieldOrder))
	for i, name := range fieldOrder {
		col := make([]any, len(rows))
		for r, row := range rows {
			col[r] = row[name]
		}
		cols[i] = col
		fields[i] = vfvalue.Field{Name: name, Type: inferColumnType(col)}
	}
	return vfvalue.NewTable(vfvalue.Schema{Fields: fields}, cols)
}

func inferColumnType(col []any) vfvalue.DataType {
	for _, v := range col {
		switch v.(type) {
		case bool:
			return vfvalue.TypeBool
		case float64:
			return vfvalue.TypeFloat64
		case string:
			return vfvalue.TypeString
		}
	}
	return vfvalue.TypeNull
}
