package store

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"searchvolume-go/pkg/logger"
)

const defaultCollection = "keyword_volumes"

// FirestoreConfig holds settings for the Firestore-backed store.
type FirestoreConfig struct {
	ProjectID string `mapstructure:"project_id"`
	// Collection defaults to "keyword_volumes".
	Collection string `mapstructure:"collection"`
	// CredentialsFile points at a service-account JSON file. Empty means
	// application default credentials.
	CredentialsFile string `mapstructure:"credentials_file"`
}

// FirestoreStorage persists keyword volume documents in a Firestore
// collection, one document per keyword.
type FirestoreStorage struct {
	client     *firestore.Client
	collection string
	log        *logger.Logger
}

func NewFirestoreStorage(ctx context.Context, cfg FirestoreConfig, log *logger.Logger) (*FirestoreStorage, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("store: firestore project_id is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	if log == nil {
		log = logger.Nop()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("store: failed to create firestore client: %w", err)
	}

	return &FirestoreStorage{
		client:     client,
		collection: cfg.Collection,
		log:        log.WithField("component", "firestore_storage"),
	}, nil
}

// docID turns a keyword into a valid Firestore document id. Slashes are the
// only characters Firestore outright rejects.
func docID(keyword string) string {
	return strings.ReplaceAll(keyword, "/", "_")
}

func (fs *FirestoreStorage) Save(ctx context.Context, doc KeywordVolumeDoc) error {
	if doc.Keyword == "" {
		return fmt.Errorf("store: document keyword cannot be empty")
	}

	_, err := fs.client.Collection(fs.collection).Doc(docID(doc.Keyword)).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("store: failed to save %q: %w", doc.Keyword, err)
	}

	fs.log.WithField("keyword", doc.Keyword).Debug("Saved keyword document")
	return nil
}

func (fs *FirestoreStorage) Load(ctx context.Context, keyword string) (*KeywordVolumeDoc, error) {
	snap, err := fs.client.Collection(fs.collection).Doc(docID(keyword)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, keyword)
		}
		return nil, fmt.Errorf("store: failed to load %q: %w", keyword, err)
	}

	var doc KeywordVolumeDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("store: failed to decode %q: %w", keyword, err)
	}
	return &doc, nil
}

func (fs *FirestoreStorage) List(ctx context.Context) ([]KeywordVolumeDoc, error) {
	iter := fs.client.Collection(fs.collection).Documents(ctx)
	defer iter.Stop()

	var docs []KeywordVolumeDoc
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: failed to list documents: %w", err)
		}

		var doc KeywordVolumeDoc
		if err := snap.DataTo(&doc); err != nil {
			fs.log.WithError(err).WithField("doc_id", snap.Ref.ID).Warn("Skipping undecodable document")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (fs *FirestoreStorage) Delete(ctx context.Context, keyword string) error {
	_, err := fs.client.Collection(fs.collection).Doc(docID(keyword)).Delete(ctx)
	if err != nil {
		return fmt.Errorf("store: failed to delete %q: %w", keyword, err)
	}
	return nil
}

func (fs *FirestoreStorage) Exists(ctx context.Context, keyword string) (bool, error) {
	snap, err := fs.client.Collection(fs.collection).Doc(docID(keyword)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("store: failed to check %q: %w", keyword, err)
	}
	return snap.Exists(), nil
}

func (fs *FirestoreStorage) Close() error {
	return fs.client.Close()
}
