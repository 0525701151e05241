package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/resolve"
	"github.com/sloanyang/gyp/pkg/value"
)

// JSON writes the resolved model as one indented JSON document
type JSON struct{}

func (*JSON) Name() string { return "json" }
func (*JSON) Variables() []string { return hostVariables() }

// Document is the JSON backend's output layout. Targets and units are
// objects keyed in build order and load order respectively.
type Document struct {
	Order            []string               `json:"order"`
	Targets          *value.Map             `json:"targets"`
	Units            *value.Map             `json:"units"`
	Graph            *model.Graph           `json:"graph"`
	UnitDependencies []model.UnitDependency `json:"unitDependencies"`
}

// NewDocument builds the JSON layout for res
func NewDocument(res *resolve.Result) *Document {
	doc := &Document{
		Order:            res.Order,
		Targets:          value.NewMap(),
		Units:            value.NewMap(),
		Graph:            model.ExportGraph(res.Targets),
		UnitDependencies: model.UnitDependencies(res.Targets),
	}
	for _, ref := range res.Order {
		if t, ok := res.Targets.Get(ref); ok {
			doc.Targets.Set(ref, t.Record)
		}
	}
	for _, u := range res.Units {
		doc.Units.Set(u.Path, u.Data)
	}
	return doc
}

func (*JSON) GenerateOutput(ctx context.Context, res *resolve.Result, w io.Writer) error {
	data, err := json.MarshalIndent(NewDocument(res), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
