// Package mongostore keeps mood entries in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/unowned-ai/moodledger/pkg/moods"
)

const (
	CollectionName = "mood_entries"
	patientDayIdx  = "patient_day_unique"
)

// document is the stored shape. The day is kept as YYYY-MM-DD so it sorts
// and compares as a plain string.
type document struct {
	ID        string    `bson:"_id"`
	PatientID string    `bson:"patient_id"`
	Date      string    `bson:"date"`
	Mood      string    `bson:"mood"`
	MoodScore int       `bson:"mood_score"`
	Notes     string    `bson:"notes"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to uri, pings the primary and ensures the unique
// (patient_id, date) index exists.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	s := &Store{client: client, coll: client.Database(database).Collection(CollectionName)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "patient_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(patientDayIdx),
	})
	if err != nil {
		return fmt.Errorf("failed to create %s index: %w", patientDayIdx, err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, e moods.Entry) (moods.Entry, error) {
	doc := toDocument(e)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return moods.Entry{}, moods.ErrDuplicateEntry
		}
		return moods.Entry{}, moods.StorageFailure("mongo insert", err)
	}
	return fromDocument(doc)
}

func (s *Store) UpsertDay(ctx context.Context, e moods.Entry) (moods.Entry, error) {
	doc := toDocument(e)
	filter := bson.D{{Key: "patient_id", Value: doc.PatientID}, {Key: "date", Value: doc.Date}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "mood", Value: doc.Mood},
			{Key: "mood_score", Value: doc.MoodScore},
			{Key: "notes", Value: doc.Notes},
			{Key: "updated_at", Value: doc.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "_id", Value: doc.ID},
			{Key: "created_at", Value: doc.CreatedAt},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved document
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced on an empty day and one lost the insert; the
		// document exists now, so the retry takes the update path.
		err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	}
	if err != nil {
		return moods.Entry{}, moods.StorageFailure("mongo upsert", err)
	}
	return fromDocument(saved)
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (moods.Entry, error) {
	return s.findOne(ctx, "mongo get", bson.D{{Key: "_id", Value: id.String()}})
}

func (s *Store) GetByDay(ctx context.Context, patientID string, day time.Time) (moods.Entry, error) {
	return s.findOne(ctx, "mongo get by day", bson.D{
		{Key: "patient_id", Value: patientID},
		{Key: "date", Value: day.Format(moods.DateLayout)},
	})
}

func (s *Store) findOne(ctx context.Context, op string, filter bson.D) (moods.Entry, error) {
	var doc document
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return moods.Entry{}, classify(op, err)
	}
	return fromDocument(doc)
}

func (s *Store) List(ctx context.Context, q moods.Query) ([]moods.Entry, error) {
	filter := bson.D{{Key: "patient_id", Value: q.PatientID}}
	dateCond := bson.D{}
	if q.From != nil {
		dateCond = append(dateCond, bson.E{Key: "$gte", Value: q.From.Format(moods.DateLayout)})
	}
	if q.To != nil {
		dateCond = append(dateCond, bson.E{Key: "$lte", Value: q.To.Format(moods.DateLayout)})
	}
	if len(dateCond) > 0 {
		filter = append(filter, bson.E{Key: "date", Value: dateCond})
	}

	dir := -1
	if q.Order == moods.SortAsc {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, moods.StorageFailure("mongo list", err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, moods.StorageFailure("mongo list", err)
	}

	entries := make([]moods.Entry, 0, len(docs))
	for _, doc := range docs {
		e, err := fromDocument(doc)
		if err != nil {
			return nil, moods.StorageFailure("mongo list", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, c moods.Change) (moods.Entry, error) {
	set := bson.D{{Key: "updated_at", Value: c.UpdatedAt}}
	if c.Mood != nil {
		set = append(set,
			bson.E{Key: "mood", Value: string(*c.Mood)},
			bson.E{Key: "mood_score", Value: c.MoodScore},
		)
	}
	if c.Notes != nil {
		set = append(set, bson.E{Key: "notes", Value: *c.Notes})
	}

	var doc document
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return moods.Entry{}, classify("mongo update", err)
	}
	return fromDocument(doc)
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (moods.Entry, error) {
	var doc document
	if err := s.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc); err != nil {
		return moods.Entry{}, classify("mongo delete", err)
	}
	return fromDocument(doc)
}

func (s *Store) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "patient_id", Value: patientID}})
	if err != nil {
		return 0, moods.StorageFailure("mongo delete by patient", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return moods.StorageFailure("mongo ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func classify(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return moods.ErrEntryNotFound
	}
	return moods.StorageFailure(op, err)
}

func toDocument(e moods.Entry) document {
	return document{
		ID:        e.ID.String(),
		PatientID: e.PatientID,
		Date:      e.Date.Format(moods.DateLayout),
		Mood:      string(e.Mood),
		MoodScore: e.MoodScore,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt.UTC(),
		UpdatedAt: e.UpdatedAt.UTC(),
	}
}

func fromDocument(d document) (moods.Entry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return moods.Entry{}, fmt.Errorf("corrupt entry id %q: %w", d.ID, err)
	}
	day, err := time.Parse(moods.DateLayout, d.Date)
	if err != nil {
		return moods.Entry{}, fmt.Errorf("corrupt entry date %q: %w", d.Date, err)
	}
	return moods.Entry{
		ID:        id,
		PatientID: d.PatientID,
		Mood:      moods.Mood(d.Mood),
		MoodScore: d.MoodScore,
		Notes:     d.Notes,
		Date:      day,
		// BSON dates carry milliseconds and decode in local time.
		CreatedAt: d.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt: d.UpdatedAt.UTC().Truncate(time.Millisecond),
	}, nil
}
