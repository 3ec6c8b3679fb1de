// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package load

import (
	"context"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/macro/message"
)

// ObjectConfig for an S3-compatible object store.
type ObjectConfig struct {
	Endpoint  string `toml:"endpoint" required:"true"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
	Bucket    string `toml:"bucket" required:"true"`
	Prefix    string `toml:"prefix"`
}

var _ message.Message = &ObjectConfig{}

// InitMessage implements message.Message.
func (c *ObjectConfig) InitMessage(js any) error {
	return message.Init(c, js)
}

// ObjectLoader overwrites an object named after the destination.
type ObjectLoader struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ Loader = &ObjectLoader{}

// NewObjectLoader creates a loader. No connection is made until Load.
func NewObjectLoader(c ObjectConfig) (*ObjectLoader, error) {
	if c.Endpoint == "" || c.Bucket == "" {
		return nil, errors.Reason("object store requires an endpoint and a bucket")
	}
	cli, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.Secure,
	})
	if err != nil {
		return nil, errors.Annotate(err, "failed to create object store client")
	}
	return &ObjectLoader{client: cli, bucket: c.Bucket, prefix: c.Prefix}, nil
}

// ObjectName is the object key for the destination.
func (l *ObjectLoader) ObjectName(destination string) string {
	return path.Join(l.prefix, destination+".csv")
}

// Load uploads the snapshot, creating the bucket if needed.
func (l *ObjectLoader) Load(ctx context.Context, r Request) error {
	if err := r.Check(); err != nil {
		return errors.Annotate(err, "invalid request")
	}
	exists, err := l.client.BucketExists(ctx, l.bucket)
	if err != nil {
		return errors.Annotate(err, "failed to check bucket '%s'", l.bucket)
	}
	if !exists {
		if err := l.client.MakeBucket(ctx, l.bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Annotate(err, "failed to create bucket '%s'", l.bucket)
		}
	}
	name := l.ObjectName(r.Destination)
	opts := minio.PutObjectOptions{ContentType: "text/csv"}
	if r.RunID != "" {
		opts.UserMetadata = map[string]string{"run-id": r.RunID}
	}
	info, err := l.client.FPutObject(ctx, l.bucket, name, r.Path, opts)
	if err != nil {
		return errors.Annotate(err, "failed to upload %s to %s/%s", r.Path, l.bucket, name)
	}
	logging.Infof(ctx, "uploaded %s to %s/%s (%d bytes)", r.Path, l.bucket, name, info.Size)
	return nil
}
