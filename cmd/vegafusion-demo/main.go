// Command vegafusion-demo wires every layer of the engine together end to
// end: a hand-built specification is planned, turned into an interactive
// chart, rendered once, then updated as if a client had moved a filter
// signal, printing the variables that changed as a result.
package main

import (
	"context"
	"fmt"

	"github.com/vegafusion/vegafusion-go/internal/vfcache"
	"github.com/vegafusion/vegafusion-go/internal/vfchart"
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vfplanner"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine/inmem"
	"github.com/vegafusion/vegafusion-go/internal/vftransform"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// histogramSpec builds a small interactive histogram: an inline dataset,
// a "threshold" signal the client owns, a filtered dataset the server
// recomputes whenever threshold moves, and a mark that renders it.
func histogramSpec() *vfplanner.Spec {
	filterExpr := vfexpr.Binary(">",
		vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
		vfexpr.Identifier("threshold"))

	return &vfplanner.Spec{
		Data: []vfplanner.DataDef{
			{
				Name: "source",
				Values: []map[string]any{
					{"v": 1.0}, {"v": 2.0}, {"v": 3.0}, {"v": 4.0}, {"v": 5.0}, {"v": 6.0},
				},
			},
			{
				Name:   "filtered",
				Source: "source",
				Transform: vftransform.Pipeline{
					{Kind: vftransform.KindFilter, FilterExpr: filterExpr},
				},
			},
		},
		Signals: []vfplanner.SignalDef{
			{Name: "threshold", Value: 2.0},
		},
		Marks: []vfplanner.MarkDef{
			{From: "filtered", Encodings: map[string]*vfexpr.Node{
				"x": vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
			}},
		},
	}
}

func main() {
	ctx := context.Background()

	rt := vfruntime.New(
		inmem.New(),
		vfcache.New(vfconfig.DefaultCacheConfig()),
		vfconfig.TzConfig{LocalTz: "UTC", DefaultInputTz: "UTC"},
	)

	cfg := vfconfig.DefaultPlannerConfig()
	cfg.ClientOnlyVars = []string{"threshold"}

	cs, err := vfchart.TryNew(ctx, rt, histogramSpec(), vfchart.Options{Planner: cfg})
	if err != nil {
		panic(err)
	}

	fmt.Println("server spec:", summarize(cs.GetServerSpec()))
	fmt.Println("initial filtered rows:", datasetRows(cs.GetTransformedSpec(), "filtered"))

	updates, err := cs.Update(ctx, []vfchart.Update{
		{Namespace: vfvar.Signal, Name: "threshold", Value: 4.0},
	})
	if err != nil {
		panic(err)
	}
	for _, u := range updates {
		fmt.Printf("changed %s: %v\n", u.Name, u.Value)
	}
	fmt.Println("filtered rows after threshold=4:", datasetRows(cs.GetTransformedSpec(), "filtered"))
}

func summarize(spec *vfplanner.Spec) string {
	names := make([]string, len(spec.Data))
	for i, d := range spec.Data {
		names[i] = d.Name
	}
	return fmt.Sprintf("%v", names)
}

func datasetRows(spec *vfplanner.Spec, name string) []map[string]any {
	for _, d := range spec.Data {
		if d.Name == name {
			return d.Values
		}
	}
	return nil
}
