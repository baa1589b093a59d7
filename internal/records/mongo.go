package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"carousel/internal/app/model"
)

const generationsCollection = "generations"

type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

var _ Store = (*Mongo)(nil)

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(database).Collection(generationsCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Mongo{
		client:     client,
		collection: collection,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (m *Mongo) Insert(ctx context.Context, gen *model.Generation) error {
	if _, err := m.collection.InsertOne(ctx, gen); err != nil {
		return fmt.Errorf("insert generation %s: %w", gen.ID, err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*model.Generation, error) {
	var gen model.Generation
	err := m.collection.FindOne(ctx, bson.M{"id": id}, options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&gen)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get generation %s: %w", id, err)
	}
	if gen.Slides == nil {
		gen.Slides = []model.Slide{}
	}
	return &gen, nil
}

func (m *Mongo) List(ctx context.Context, limit int) ([]*model.Generation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit))).
		SetProjection(bson.M{"_id": 0})

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	var out []*model.Generation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode generations: %w", err)
	}
	if out == nil {
		out = []*model.Generation{}
	}
	return out, nil
}

func (m *Mongo) Update(ctx context.Context, id string, update model.GenerationUpdate) error {
	result, err := m.collection.UpdateOne(ctx, bson.M{"id": id}, updateDocument(update, m.now()))
	if err != nil {
		return fmt.Errorf("update generation %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (m *Mongo) PatchSlide(ctx context.Context, id, slideID string, patch model.SlidePatch) error {
	filter := bson.M{"id": id, "slides.id": slideID}
	result, err := m.collection.UpdateOne(ctx, filter, slidePatchDocument(patch, m.now()))
	if err != nil {
		return fmt.Errorf("patch slide %s: %w", slideID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("slide %s in generation %s: %w", slideID, id, ErrNotFound)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func updateDocument(update model.GenerationUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if update.Topic != nil {
		set["topic"] = *update.Topic
	}
	if update.Theme != nil {
		set["theme"] = *update.Theme
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.Slides != nil {
		set["slides"] = update.Slides
	}
	return bson.M{"$set": set}
}

// slidePatchDocument targets the array element matched by the "slides.id" filter.
func slidePatchDocument(patch model.SlidePatch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if patch.BackgroundURL != nil {
		set["slides.$.background_url"] = *patch.BackgroundURL
	}
	if patch.OverlayEnabled != nil {
		set["slides.$.text_bg_enabled"] = *patch.OverlayEnabled
	}
	if patch.ContainerOpacity != nil {
		set["slides.$.container_opacity"] = *patch.ContainerOpacity
	}
	return bson.M{"$set": set}
}
