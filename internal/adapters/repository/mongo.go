package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/pkg/metrics"
)

const (
	tournamentsCollection = "tournaments"
	matchesCollection     = "matches"
	playersCollection     = "players"

	defaultMongoTimeout = 10 * time.Second
)

type playerDoc struct {
	ID   bracket.PlayerID `bson:"player_id"`
	Name string           `bson:"name"`
}

type matchDoc struct {
	TournamentID string      `bson:"tournament_id"`
	Position     int         `bson:"position"`
	MatchID      string      `bson:"match_id"`
	Round        int         `bson:"round"`
	SideA        []playerDoc `bson:"side_a"`
	SideB        []playerDoc `bson:"side_b"`
}

type tournamentDoc struct {
	TournamentID string    `bson:"tournament_id"`
	SeededAt     time.Time `bson:"seeded_at"`
}

type levelDoc struct {
	TournamentID string           `bson:"tournament_id"`
	PlayerID     bracket.PlayerID `bson:"player_id"`
	Name         string           `bson:"name"`
	Level        int              `bson:"level"`
}

// MongoStore is a Store backed by three MongoDB collections: tournaments
// holds one document per seeded tournament, matches one per first-round
// match and players one per registered player with its level.
type MongoStore struct {
	client      *mongo.Client
	db          *mongo.Database
	tournaments *mongo.Collection
	matches     *mongo.Collection
	players     *mongo.Collection
	timeout     time.Duration
}

// Connect dials uri, verifies the connection and ensures the indexes the
// store relies on.
func Connect(ctx context.Context, uri, database string, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{timeout: defaultMongoTimeout}
	for _, opt := range opts {
		opt(s)
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s.client = client
	s.db = client.Database(database)
	s.tournaments = s.db.Collection(tournamentsCollection)
	s.matches = s.db.Collection(matchesCollection)
	s.players = s.db.Collection(playersCollection)

	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.tournaments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tournament_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create tournaments index: %w", err)
	}
	_, err = s.matches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tournament_id", Value: 1}, {Key: "position", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create matches index: %w", err)
	}
	_, err = s.players.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tournament_id", Value: 1}, {Key: "player_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create players index: %w", err)
	}
	return nil
}

// ReplaceMatches registers the tournament, deletes its stored matches,
// inserts the new ones and upserts their players. A tournament seeded with
// no matches still exists afterwards. The steps are not transactional; a
// failure part way leaves the previous players registered.
func (s *MongoStore) ReplaceMatches(ctx context.Context, tournamentID string, matches []bracket.Match) error {
	if err := validateTournamentID(tournamentID); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	filter := bson.D{{Key: "tournament_id", Value: tournamentID}}
	_, err := s.tournaments.UpdateOne(ctx, filter,
		bson.D{{Key: "$set", Value: tournamentDoc{TournamentID: tournamentID, SeededAt: time.Now().UTC()}}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("register tournament %s: %w", tournamentID, err)
	}
	if _, err := s.matches.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("clear matches of %s: %w", tournamentID, err)
	}
	if len(matches) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(matches))
	var upserts []mongo.WriteModel
	for i, m := range matches {
		docs = append(docs, matchDoc{
			TournamentID: tournamentID,
			Position:     i,
			MatchID:      m.ID,
			Round:        m.Round,
			SideA:        toPlayerDocs(m.SideA),
			SideB:        toPlayerDocs(m.SideB),
		})
		for _, p := range sidePlayers(m) {
			upserts = append(upserts, mongo.NewUpdateOneModel().
				SetFilter(bson.D{{Key: "tournament_id", Value: tournamentID}, {Key: "player_id", Value: p.ID}}).
				SetUpdate(bson.D{
					{Key: "$set", Value: bson.D{{Key: "name", Value: p.Name}}},
					{Key: "$setOnInsert", Value: bson.D{{Key: "level", Value: 0}}},
				}).
				SetUpsert(true))
		}
	}

	if _, err := s.matches.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert matches of %s: %w", tournamentID, err)
	}
	if len(upserts) > 0 {
		if _, err := s.players.BulkWrite(ctx, upserts, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("register players of %s: %w", tournamentID, err)
		}
	}
	return nil
}

// Snapshot loads the tournament, its matches and its players concurrently.
func (s *MongoStore) Snapshot(ctx context.Context, tournamentID string) (model.Snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds())) }()

	filter := bson.D{{Key: "tournament_id", Value: tournamentID}}
	var (
		seeded    int64
		matchDocs []matchDoc
		levelDocs []levelDoc
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.tournaments.CountDocuments(gctx, filter)
		if err != nil {
			return fmt.Errorf("find tournament: %w", err)
		}
		seeded = n
		return nil
	})
	g.Go(func() error {
		cur, err := s.matches.Find(gctx, filter, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
		if err != nil {
			return fmt.Errorf("find matches: %w", err)
		}
		return cur.All(gctx, &matchDocs)
	})
	g.Go(func() error {
		cur, err := s.players.Find(gctx, filter)
		if err != nil {
			return fmt.Errorf("find players: %w", err)
		}
		return cur.All(gctx, &levelDocs)
	})
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot %s: %w", tournamentID, err)
	}
	if seeded == 0 {
		return model.Snapshot{}, fmt.Errorf("%s: %w", tournamentID, ErrNotFound)
	}

	snap := model.Snapshot{
		TournamentID: tournamentID,
		Matches:      make([]bracket.Match, 0, len(matchDocs)),
		Levels:       make(map[bracket.PlayerID]int, len(levelDocs)),
		TakenAt:      time.Now(),
	}
	for _, d := range matchDocs {
		snap.Matches = append(snap.Matches, bracket.Match{
			ID:    d.MatchID,
			Round: d.Round,
			SideA: fromPlayerDocs(d.SideA),
			SideB: fromPlayerDocs(d.SideB),
		})
	}
	for _, d := range levelDocs {
		snap.Levels[d.PlayerID] = d.Level
	}
	return snap, nil
}

// AdjustLevel applies delta in a single server-side update pipeline so
// concurrent adjustments never lose a step.
func (s *MongoStore) AdjustLevel(ctx context.Context, tournamentID string, id bracket.PlayerID, delta int) (int, error) {
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{{Key: "level", Value: bson.D{
		{Key: "$max", Value: bson.A{0, bson.D{{Key: "$add", Value: bson.A{"$level", delta}}}}},
	}}}}}}
	return s.updateLevel(ctx, tournamentID, id, update)
}

func (s *MongoStore) SetLevel(ctx context.Context, tournamentID string, id bracket.PlayerID, level int) (int, error) {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "level", Value: max(level, 0)}}}}
	return s.updateLevel(ctx, tournamentID, id, update)
}

func (s *MongoStore) updateLevel(ctx context.Context, tournamentID string, id bracket.PlayerID, update interface{}) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	filter := bson.D{{Key: "tournament_id", Value: tournamentID}, {Key: "player_id", Value: id}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc levelDoc
	err := s.players.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("player %d in %s: %w", id, tournamentID, ErrPlayerNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("update level of player %d: %w", id, err)
	}
	return doc.Level, nil
}

func (s *MongoStore) Tournaments(ctx context.Context) ([]string, error) {
	values, err := s.tournaments.Distinct(ctx, "tournament_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Count returns 0 when the database cannot be reached.
func (s *MongoStore) Count(ctx context.Context) int {
	ids, err := s.Tournaments(ctx)
	if err != nil {
		return 0
	}
	return len(ids)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}

// Drop removes the store's database. Intended for tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func toPlayerDocs(side []bracket.Player) []playerDoc {
	out := make([]playerDoc, len(side))
	for i, p := range side {
		out[i] = playerDoc{ID: p.ID, Name: p.Name}
	}
	return out
}

func fromPlayerDocs(docs []playerDoc) []bracket.Player {
	out := make([]bracket.Player, len(docs))
	for i, d := range docs {
		out[i] = bracket.Player{ID: d.ID, Name: d.Name}
	}
	return out
}
