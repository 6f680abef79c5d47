package dbclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"databridge/internal/convert"
	"databridge/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoConnector implements Connector for MongoDB.
type mongoConnector struct {
	client *mongo.Client
	dbName string
}

func newMongoConnector(conn *domain.DatabaseConnection, password string, opts Options) (*mongoConnector, error) {
	uri, dbName := buildMongoURI(conn, password)

	// Mask password in URI for logging
	logURI := uri
	if password != "" && strings.Contains(logURI, password) {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s (database %s)", logURI, dbName)

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(opts.connectTimeout()).
		SetConnectTimeout(opts.connectTimeout())
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		log.Printf("[MONGO] Connect failed: %v", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &mongoConnector{client: client, dbName: dbName}, nil
}

// buildMongoURI returns the connection URI and the database to use. A host
// that is already a mongodb:// or mongodb+srv:// URI is used as given, with
// Atlas password placeholders filled in.
func buildMongoURI(conn *domain.DatabaseConnection, password string) (uri, dbName string) {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri = conn.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
	} else {
		port := conn.Port
		if port == 0 {
			port = 27017
		}
		u := &url.URL{Scheme: "mongodb", Host: net.JoinHostPort(conn.Host, strconv.Itoa(port))}
		if conn.Username != "" {
			u.User = url.UserPassword(conn.Username, password)
		}
		if conn.Database != "" {
			u.Path = "/" + conn.Database
		}
		uri = u.String()
	}

	dbName = conn.Database
	if dbName == "" {
		if u, err := url.Parse(uri); err == nil {
			dbName = strings.TrimPrefix(u.Path, "/")
		}
	}
	if dbName == "" {
		dbName = "test"
	}
	return uri, dbName
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) ListSources(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	names, err := m.client.Database(m.dbName).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (m *mongoConnector) Preview(ctx context.Context, collection string, limit int) (domain.SampleSet, error) {
	if collection == "" {
		return nil, fmt.Errorf("preview: empty collection name")
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	coll := m.client.Database(m.dbName).Collection(collection)
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	set := domain.SampleSet{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		set = append(set, DocumentToRecord(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	log.Printf("[MONGO] Previewed %d docs from %s.%s", len(set), m.dbName, collection)
	return set, nil
}

func (m *mongoConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	names, err := m.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db := m.client.Database(m.dbName)
	schema := &SchemaInfo{}
	for _, collName := range names {
		// Sample one document to extract field names
		var doc bson.D
		err := db.Collection(collName).FindOne(ctx, bson.D{}).Decode(&doc)
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: collName})
			continue
		}

		rec := DocumentToRecord(doc)
		cols := make([]ColumnInfo, 0, len(rec))
		for _, f := range rec {
			cols = append(cols, ColumnInfo{Name: f.Key, Type: convert.InferColumnType(f.Key, f.Value)})
		}
		schema.Tables = append(schema.Tables, TableInfo{Name: collName, Columns: cols})
	}
	return schema, nil
}

func (m *mongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// DocumentToRecord converts a BSON document to a Record, keeping field order.
func DocumentToRecord(doc bson.D) domain.Record {
	rec := make(domain.Record, 0, len(doc))
	for _, elem := range doc {
		rec = append(rec, domain.Field{Key: elem.Key, Value: NormalizeBSON(elem.Value)})
	}
	return rec
}

// NormalizeBSON maps BSON values onto JSON-friendly kinds. Object IDs become
// their 24-character hex form and dates become ISO-8601 strings.
func NormalizeBSON(v any) any {
	switch val := v.(type) {
	case nil, bson.Null, bson.Undefined:
		return nil
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case bson.Timestamp:
		return time.Unix(int64(val.T), 0).UTC().Format(time.RFC3339)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bson.Decimal128:
		return val.String()
	case int32:
		return int64(val)
	case bson.D:
		return DocumentToRecord(val)
	case bson.M:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec := make(domain.Record, 0, len(val))
		for _, k := range keys {
			rec = append(rec, domain.Field{Key: k, Value: NormalizeBSON(val[k])})
		}
		return rec
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeBSON(item)
		}
		return out
	case bson.Binary:
		if (val.Subtype == 0x04 || val.Subtype == 0x03) && len(val.Data) == 16 {
			if id, err := uuid.FromBytes(val.Data); err == nil {
				return id.String()
			}
		}
		return base64.StdEncoding.EncodeToString(val.Data)
	case bson.Regex:
		return "/" + val.Pattern + "/" + val.Options
	case bson.Symbol:
		return string(val)
	case bson.JavaScript:
		return string(val)
	case bson.MinKey, bson.MaxKey, bson.DBPointer, bson.CodeWithScope:
		return fmt.Sprint(val)
	default:
		return val
	}
}
