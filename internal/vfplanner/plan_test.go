package vfplanner

import (
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vftransform"
)

func simpleSpec() *Spec {
	filterExpr := vfexpr.Binary(">",
		vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
		vfexpr.Identifier("threshold"))
	return &Spec{
		Data: []DataDef{
			{Name: "source", URL: "https://example.com/data.csv", Format: "csv"},
			{Name: "filtered", Source: "source", Transform: vftransform.Pipeline{
				{Kind: vftransform.KindFilter, FilterExpr: filterExpr},
			}},
		},
		Signals: []SignalDef{
			{Name: "threshold", Value: 0.0},
		},
		Marks: []MarkDef{
			{From: "filtered", Encodings: map[string]*vfexpr.Node{
				"x": vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
			}},
		},
	}
}

func TestPlanPartitionsSupportedChainServerSide(t *testing.T) {
	spec := simpleSpec()
	plan, err := Plan(spec, vfconfig.DefaultPlannerConfig())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Warnings) != 0 {
		t.Fatalf("expected no warnings for a fully-supported spec, got %v", plan.Warnings)
	}
	foundFiltered := false
	for _, d := range plan.ServerSpec.Data {
		if d.Name == "filtered" {
			foundFiltered = true
		}
	}
	if !foundFiltered {
		t.Fatalf("expected 'filtered' dataset to be server-eligible")
	}
}

func TestPlanFlagsUnsupportedTransformChain(t *testing.T) {
	spec := simpleSpec()
	spec.Data[1].Transform = append(spec.Data[1].Transform, vftransform.Transform{
		Kind: vftransform.KindUnsupported, UnsupportedType: "geopath",
	})
	plan, err := Plan(spec, vfconfig.DefaultPlannerConfig())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Warnings) == 0 {
		t.Fatalf("expected an unsupported-transform warning")
	}
	for _, d := range plan.ServerSpec.Data {
		if d.Name == "filtered" {
			t.Fatalf("dataset with an unsupported transform must not be placed server-side")
		}
	}
}

// TestPlanPartitionDisjointness pins spec.md §8's "planner partition
// disjointness" property: every dataset/signal of the input spec is fully
// defined in exactly one of the two output specs, with a definition-free
// stub in the other.
func TestPlanPartitionDisjointness(t *testing.T) {
	spec := simpleSpec()
	plan, err := Plan(spec, vfconfig.DefaultPlannerConfig())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	serverDefined := map[string]bool{}
	for _, d := range plan.ServerSpec.Data {
		serverDefined[d.Name] = len(d.Transform) > 0 || d.URL != "" || d.Source != ""
	}
	clientData := map[string]DataDef{}
	for _, d := range plan.ClientSpec.Data {
		clientData[d.Name] = d
	}
	for name, def := range serverDefined {
		if !def {
			continue
		}
		client, ok := clientData[name]
		if !ok {
			t.Fatalf("server dataset %q has no stub counterpart in the client spec", name)
		}
		if client.URL != "" || client.Source != "" || len(client.Transform) != 0 {
			t.Fatalf("dataset %q defined on both server and client: %+v", name, client)
		}
	}
}

// TestPlanServerToClientIncludesMarkConsumedDataset pins spec.md §8's
// planner YES/NO scenario: a mark consuming a server-eligible dataset
// pulls it into the server→client comm plan even though nothing else
// references it by name.
func TestPlanServerToClientIncludesMarkConsumedDataset(t *testing.T) {
	spec := simpleSpec()
	plan, err := Plan(spec, vfconfig.DefaultPlannerConfig())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	found := false
	for _, v := range plan.CommPlan.ServerToClient {
		if v.Variable.Name == "filtered" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'filtered' in server->client comm plan, got %v", plan.CommPlan.ServerToClient)
	}
}

func TestPlanClientToServerEntryWhenServerReadsClientOnlySignal(t *testing.T) {
	// "threshold" is forced client-only while the server-placed "filtered"
	// dataset still reads it, so the server needs it fed back via comms.
	spec := simpleSpec()
	cfg := vfconfig.DefaultPlannerConfig()
	cfg.ClientOnlyVars = []string{"threshold"}
	plan, err := Plan(spec, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	found := false
	for _, v := range plan.CommPlan.ClientToServer {
		if v.Variable.Name == "threshold" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a client->server entry for 'threshold', got %v", plan.CommPlan.ClientToServer)
	}
}

func TestPlanClientToServerSuppressedWhenCommsDisabled(t *testing.T) {
	spec := simpleSpec()
	cfg := vfconfig.DefaultPlannerConfig()
	cfg.ClientOnlyVars = []string{"threshold"}
	cfg.AllowClientToServer = false
	plan, err := Plan(spec, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.CommPlan.ClientToServer) != 0 {
		t.Fatalf("expected no client->server entries when comms are disabled, got %v", plan.CommPlan.ClientToServer)
	}
}
