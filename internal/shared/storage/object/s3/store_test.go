package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Azee177/jianli/internal/shared/storage/object"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	raw, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = raw
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	raw, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(raw))}, nil
}

func TestApplyPrefix(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "resumes/u/file.pdf", "resumes/u/file.pdf"},
		{"root", "resumes/u/file.pdf", "root/resumes/u/file.pdf"},
		{"/root/", "/resumes/u/file.pdf", "root/resumes/u/file.pdf"},
	}
	for _, tt := range tests {
		if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
			t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestSaveEncryptsAndOpenRoundTrips(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	s := newStore(fake, "bucket", "/uploads/", "kms-key")
	ctx := context.Background()

	key, size, mime, err := s.Save(ctx, "u1", "cv.txt", strings.NewReader("hello resume"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("hello resume")) || !strings.HasPrefix(mime, "text/plain") {
		t.Fatalf("unexpected size=%d mime=%q", size, mime)
	}
	put := fake.puts[0]
	if aws.ToString(put.Key) != "uploads/"+key || put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms {
		t.Fatalf("unexpected put %+v", put)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello resume" {
		t.Fatalf("unexpected content %q", got)
	}

	if _, err := s.Open(ctx, "resumes/none"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
