// Package mongo hosts the MongoDB client used by the chart state store.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/vegafusion/vegafusion-go/internal/vfchart"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

const (
	defaultStatesCollection = "chart_states"
	defaultOpTimeout        = 5 * time.Second
	clientName              = "chart-state-mongo"
)

// Client exposes Mongo-backed persistence for a ChartState's
// current_task_graph_state, so a chart survives a process restart or
// moves between server instances without replaying every Update that
// produced its current values.
type Client interface {
	Name() string
	Ping(ctx context.Context) error

	SaveState(ctx context.Context, chartID string, state map[string]vfchart.RootValue) error
	LoadState(ctx context.Context, chartID string) (map[string]vfchart.RootValue, error)
	DeleteState(ctx context.Context, chartID string) error
}

// Options configures the Mongo chart-state client.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

type client struct {
	mongo   *mongodriver.Client
	states  collection
	timeout time.Duration
}

// New returns a Client backed by MongoDB.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	statesCollection := opts.Collection
	if statesCollection == "" {
		statesCollection = defaultStatesCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(statesCollection)
	wrapper := mongoCollection{coll: coll}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ensureIndexes(ctx, wrapper); err != nil {
		return nil, err
	}
	return &client{mongo: opts.Client, states: wrapper, timeout: timeout}, nil
}

func (c *client) Name() string { return clientName }

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) SaveState(ctx context.Context, chartID string, state map[string]vfchart.RootValue) error {
	if chartID == "" {
		return errors.New("chart id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	doc := chartStateDocument{
		ChartID:   chartID,
		Values:    fromRootValues(state),
		UpdatedAt: time.Now().UTC(),
	}
	filter := bson.M{"chart_id": chartID}
	update := bson.M{"$set": bson.M{
		"chart_id":   doc.ChartID,
		"values":     doc.Values,
		"updated_at": doc.UpdatedAt,
	}}
	_, err := c.states.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (c *client) LoadState(ctx context.Context, chartID string) (map[string]vfchart.RootValue, error) {
	if chartID == "" {
		return nil, errors.New("chart id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var doc chartStateDocument
	if err := c.states.FindOne(ctx, bson.M{"chart_id": chartID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return doc.toRootValues(), nil
}

func (c *client) DeleteState(ctx context.Context, chartID string) error {
	if chartID == "" {
		return errors.New("chart id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.states.DeleteOne(ctx, bson.M{"chart_id": chartID})
	return err
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ErrStateNotFound is returned by LoadState when no document matches the
// requested chart ID.
var ErrStateNotFound = errors.New("chart state not found")

type chartStateDocument struct {
	ChartID   string              `bson:"chart_id"`
	Values    []rootValueDocument `bson:"values"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

type rootValueDocument struct {
	Key       string           `bson:"key"`
	Namespace int              `bson:"namespace"`
	Name      string           `bson:"name"`
	Scope     []int            `bson:"scope"`
	Scalar    any              `bson:"scalar,omitempty"`
	Rows      []map[string]any `bson:"rows,omitempty"`
}

func fromRootValues(state map[string]vfchart.RootValue) []rootValueDocument {
	out := make([]rootValueDocument, 0, len(state))
	for key, rv := range state {
		out = append(out, rootValueDocument{
			Key:       key,
			Namespace: int(rv.Namespace),
			Name:      rv.Name,
			Scope:     append([]int(nil), rv.Scope...),
			Scalar:    rv.Scalar,
			Rows:      rv.Rows,
		})
	}
	return out
}

func (doc chartStateDocument) toRootValues() map[string]vfchart.RootValue {
	out := make(map[string]vfchart.RootValue, len(doc.Values))
	for _, v := range doc.Values {
		out[v.Key] = vfchart.RootValue{
			Namespace: vfvar.Namespace(v.Namespace),
			Name:      v.Name,
			Scope:     vfvar.Scope(append([]int(nil), v.Scope...)),
			Scalar:    v.Scalar,
			Rows:      v.Rows,
		}
	}
	return out
}

func ensureIndexes(ctx context.Context, states collection) error {
	chartIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "chart_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := states.Indexes().CreateOne(ctx, chartIndex)
	return err
}

type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	UpdateOne(ctx context.Context, filter any, update any,
		opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongodriver.DeleteResult, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel,
		opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return mongoSingleResult{res: c.coll.FindOne(ctx, filter, opts...)}
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter any, update any,
	opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongodriver.DeleteResult, error) {
	return c.coll.DeleteOne(ctx, filter, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoSingleResult struct {
	res *mongodriver.SingleResult
}

func (r mongoSingleResult) Decode(val any) error {
	return r.res.Decode(val)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel,
	opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
