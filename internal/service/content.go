package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrContentMissing reports a document body that cannot be resolved
var ErrContentMissing = errors.New("content missing")

const documentExt = ".md"

// ContentRef builds the relative reference category/name.md used by every store
func ContentRef(category, name string) string {
	return path.Join(safeSegment(category), safeSegment(name)+documentExt)
}

// safeSegment keeps a name usable as a single path element
func safeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// FileContentStore keeps document bodies under a corpus root directory
type FileContentStore struct {
	root string
}

// NewFileContentStore creates a new FileContentStore rooted at root
func NewFileContentStore(root string) *FileContentStore {
	return &FileContentStore{root: root}
}

func (s *FileContentStore) resolve(ref string) (string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(ref))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: reference %q escapes content root", ErrContentMissing, ref)
	}
	return full, nil
}

// Read returns the body stored at ref
func (s *FileContentStore) Read(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", ErrContentMissing
	}
	full, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentMissing, err)
	}
	return string(data), nil
}

// Write stores text as category/name.md and returns its reference
func (s *FileContentStore) Write(ctx context.Context, category, name, text string) (string, error) {
	ref := ContentRef(category, name)
	full, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create content directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write content: %w", err)
	}
	return ref, nil
}

// S3API is the subset of the S3 client used for document bodies
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ContentStore keeps document bodies in an S3 bucket under a key prefix
type S3ContentStore struct {
	client S3API
	bucket string
	prefix string
}

// NewS3ContentStore creates a new S3ContentStore
func NewS3ContentStore(client S3API, bucket, prefix string) *S3ContentStore {
	return &S3ContentStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3ContentStore) key(ref string) string {
	return s.prefix + ref
}

// Read returns the body stored at ref
func (s *S3ContentStore) Read(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", ErrContentMissing
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentMissing, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentMissing, err)
	}
	return string(data), nil
}

// Write stores text as category/name.md and returns its reference
func (s *S3ContentStore) Write(ctx context.Context, category, name, text string) (string, error) {
	ref := ContentRef(category, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(ref)),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return ref, nil
}
