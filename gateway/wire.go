package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/resinkit/resinkit-go/core"
)

type (
	openSessionRequest struct {
		Properties  map[string]string `json:"properties"`
		SessionName string            `json:"sessionName,omitempty"`
	}

	openSessionResponse struct {
		SessionHandle Field[string] `json:"sessionHandle"`
	}

	sessionConfigResponse struct {
		Properties Field[map[string]string] `json:"properties"`
	}

	executeStatementRequest struct {
		Statement        string            `json:"statement"`
		Properties       map[string]string `json:"properties,omitempty"`
		ExecutionTimeout int64             `json:"executionTimeout,omitempty"`
	}

	executeStatementResponse struct {
		OperationHandle Field[string] `json:"operationHandle"`
	}

	completeStatementRequest struct {
		Statement string `json:"statement"`
		Position  int    `json:"position"`
	}

	completeStatementResponse struct {
		Candidates Field[[]string] `json:"candidates"`
	}

	statusResponse struct {
		Status Field[string] `json:"status"`
	}

	infoResponse struct {
		ProductName Field[string] `json:"productName"`
		Version     Field[string] `json:"version"`
	}

	apiVersionsResponse struct {
		Versions Field[[]string] `json:"versions"`
	}
)

type (
	fetchResultsResponse struct {
		ResultType    Field[string]    `json:"resultType"`
		IsQueryResult Field[bool]      `json:"isQueryResult"`
		JobID         Field[string]    `json:"jobID"`
		ResultKind    Field[string]    `json:"resultKind"`
		Results       Field[resultSet] `json:"results"`
		NextResultURI Field[string]    `json:"nextResultUri"`
	}

	resultSet struct {
		Columns     Field[[]columnInfo] `json:"columns"`
		ColumnInfos Field[[]columnInfo] `json:"columnInfos"`
		Data        Field[[]rowData]    `json:"data"`
		RowFormat   Field[string]       `json:"rowFormat"`
	}

	columnInfo struct {
		Name        Field[string]      `json:"name"`
		LogicalType Field[logicalType] `json:"logicalType"`
		Comment     Field[string]      `json:"comment"`
	}

	logicalType struct {
		Type      Field[string] `json:"type"`
		Nullable  Field[bool]   `json:"nullable"`
		Length    Field[int]    `json:"length"`
		Precision Field[int]    `json:"precision"`
		Scale     Field[int]    `json:"scale"`
	}

	rowData struct {
		Kind   Field[string] `json:"kind"`
		Fields Field[[]any]  `json:"fields"`
	}
)

// UnmarshalJSON accepts both the object form and a bare type string.
func (lt *logicalType) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*lt = logicalType{Type: Some(name)}
		return nil
	}

	type plain logicalType
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*lt = logicalType(p)
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func (r *fetchResultsResponse) toPage() (*core.Page, error) {
	resultType, ok := r.ResultType.Get()
	if !ok || resultType == "" {
		return nil, malformed("missing resultType")
	}

	page := &core.Page{
		ResultType:    core.ResultType(strings.ToUpper(resultType)),
		NextCursor:    r.NextResultURI.OrElse(""),
		JobID:         r.JobID.OrElse(""),
		ResultKind:    r.ResultKind.OrElse(""),
		IsQueryResult: r.IsQueryResult.OrElse(false),
	}

	results, ok := r.Results.Get()
	if !ok {
		return page, nil
	}
	page.RowFormat = results.RowFormat.OrElse("")

	columns, err := results.columns()
	if err != nil {
		return nil, err
	}
	page.Columns = columns

	rows, err := results.rows()
	if err != nil {
		return nil, err
	}
	page.Rows = rows

	return page, nil
}

// columns prefers "columns" and falls back to "columnInfos". Nil means the
// page carried no schema.
func (rs *resultSet) columns() ([]*core.Column, error) {
	infos, ok := rs.Columns.Get()
	if !ok || len(infos) == 0 {
		infos, ok = rs.ColumnInfos.Get()
	}
	if !ok || len(infos) == 0 {
		return nil, nil
	}

	columns := make([]*core.Column, 0, len(infos))
	for i, info := range infos {
		name, ok := info.Name.Get()
		if !ok {
			return nil, malformed("column %d has no name", i)
		}

		column := &core.Column{
			Name:     name,
			Nullable: true,
		}
		if lt, ok := info.LogicalType.Get(); ok {
			column.LogicalType = lt.Type.OrElse("")
			column.Nullable = lt.Nullable.OrElse(true)
			column.Length = optional(lt.Length)
			column.Precision = optional(lt.Precision)
			column.Scale = optional(lt.Scale)
		}
		columns = append(columns, column)
	}
	return columns, nil
}

func (rs *resultSet) rows() ([]core.RawRow, error) {
	data, ok := rs.Data.Get()
	if !ok {
		return nil, nil
	}

	rows := make([]core.RawRow, 0, len(data))
	for i, d := range data {
		kind, ok := d.Kind.Get()
		if !ok {
			return nil, malformed("row %d has no kind", i)
		}
		rows = append(rows, core.RawRow{
			Kind:   core.RowKind(strings.ToUpper(kind)),
			Fields: d.Fields.OrElse([]any{}),
		})
	}
	return rows, nil
}

func optional[T any](f Field[T]) *T {
	v, ok := f.Get()
	if !ok {
		return nil
	}
	return &v
}
