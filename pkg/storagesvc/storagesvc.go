// Copyright 2025 AUTHORS
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storagesvc is the Storage Service: bucket CRUD and object
// upload/download/metadata/delete/copy, versioning, ACLs, and signed-URL
// issue/redeem (spec.md §4.G).
package storagesvc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/objectstore"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

const (
	maxExpiresIn = 7 * 24 * 3600 // seconds, spec.md §4.G signed URL bound
)

// Service implements bucket and object operations atop the Metadata Store
// and Object Byte Store.
type Service struct {
	store  *store.Store
	bytes  *objectstore.Store
	selfBase string // base URL used to build signedUrl responses
}

func New(st *store.Store, bytes *objectstore.Store, selfBase string) *Service {
	return &Service{store: st, bytes: bytes, selfBase: selfBase}
}

func (s *Service) CreateBucket(project, name, location, storageClass string, versioning bool, acl store.ACL) (store.Bucket, error) {
	if acl == "" {
		acl = store.ACLPrivate
	}
	if !store.ValidACL(acl) {
		return store.Bucket{}, apierror.New(apierror.InvalidArgument, "invalid default object acl %q", acl)
	}
	now := time.Now().UTC()
	b := store.Bucket{
		Name:              name,
		ProjectID:         project,
		Location:          location,
		StorageClass:      storageClass,
		VersioningEnabled: versioning,
		DefaultObjectACL:  acl,
		CreateTime:        now,
		UpdateTime:        now,
	}
	if err := s.store.CreateBucket(b); err != nil {
		return store.Bucket{}, err
	}
	return b, nil
}

func (s *Service) GetBucket(name string) (store.Bucket, error) { return s.store.GetBucket(name) }

func (s *Service) ListBuckets(project string) ([]store.Bucket, error) {
	return s.store.ListBuckets(project)
}

func (s *Service) UpdateBucket(b store.Bucket) (store.Bucket, error) {
	b.UpdateTime = time.Now().UTC()
	if err := s.store.UpdateBucket(b); err != nil {
		return store.Bucket{}, err
	}
	return b, nil
}

// DeleteBucket rejects non-empty buckets (spec.md §4.G, Open Question 1:
// this emulator does not cascade-delete objects on bucket delete -- the
// client must empty the bucket first, matching the source's behavior).
func (s *Service) DeleteBucket(name string) error {
	hasObjects, err := s.store.BucketHasLiveObjects(name)
	if err != nil {
		return err
	}
	if hasObjects {
		return apierror.New(apierror.FailedPrecondition, "bucket %s is not empty", name)
	}
	return s.store.DeleteBucket(name)
}

// UploadResult is returned to the HTTP surface so it can shape both the
// JSON resource and the avoided-recompute checksum headers.
type UploadResult struct {
	Object store.Object
}

// Upload implements spec.md §4.G's upload sequence: the bytes land in a
// temp file first (checksums computed in the same pass), then, under the
// object-name lock, any prior live version is relocated to its
// generation-addressed path before the temp file is committed over the
// live path and the metadata row is bumped -- keeping the
// write-before-commit ordering the source used but adding the lock the
// source lacked (spec.md §9 "File-then-DB ordering").
func (s *Service) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (UploadResult, error) {
	b, err := s.store.GetBucket(bucket)
	if err != nil {
		return UploadResult{}, err
	}

	pending, err := s.bytes.WriteTemp(bucket, name, body)
	if err != nil {
		return UploadResult{}, err
	}

	var final store.Object
	lockErr := s.store.WithObjectLock(bucket, name, func(tx *buntdb.Tx) error {
		oldGen, exists, err := store.PeekLatestGeneration(tx, bucket, name)
		if err != nil {
			return err
		}
		var relocatedOldPath string
		if exists && b.VersioningEnabled {
			relocatedOldPath, err = s.bytes.PreserveVersion(bucket, name, oldGen)
			if err != nil {
				return err
			}
		}
		livePath, err := s.bytes.CommitLive(bucket, name, pending)
		if err != nil {
			return err
		}
		meta := store.Object{
			Bucket:       bucket,
			Name:         name,
			Size:         pending.Size,
			ContentType:  contentType,
			MD5Base64:    pending.MD5Base64,
			CRC32CBase64: pending.CRC32CBase64,
			FilePath:     livePath,
			StorageClass: b.StorageClass,
			ACL:          b.DefaultObjectACL,
			CreateTime:   time.Now().UTC(),
		}
		f, err := s.store.UpsertObjectVersion(tx, b.VersioningEnabled, meta, relocatedOldPath)
		if err != nil {
			return err
		}
		final = f
		return nil
	})
	if lockErr != nil {
		s.bytes.Discard(pending)
		return UploadResult{}, lockErr
	}
	return UploadResult{Object: final}, nil
}

// DownloadResult carries everything the HTTP surface needs to stream a
// response with the headers spec.md §4.G requires.
type DownloadResult struct {
	Object store.Object
	Body   io.ReadCloser
}

// Download resolves the live version, or a specific generation when one
// is requested, and opens its bytes.
func (s *Service) Download(bucket, name string, generation int64) (DownloadResult, error) {
	obj, err := s.getVersion(bucket, name, generation)
	if err != nil {
		return DownloadResult{}, err
	}
	body, err := s.bytes.Open(obj.FilePath)
	if err != nil {
		return DownloadResult{}, err
	}
	return DownloadResult{Object: obj, Body: body}, nil
}

// GetMetadata returns the JSON resource for an object, optionally pinned
// to a specific generation (spec.md §4.G metadata GET).
func (s *Service) GetMetadata(bucket, name string, generation int64) (store.Object, error) {
	return s.getVersion(bucket, name, generation)
}

func (s *Service) getVersion(bucket, name string, generation int64) (store.Object, error) {
	if generation > 0 {
		return s.store.GetObjectVersion(bucket, name, generation)
	}
	return s.store.GetObjectLatest(bucket, name)
}

// List returns live objects, or every version when includeVersions is set
// (`?versions=true`).
func (s *Service) List(bucket, prefix string, includeVersions bool) ([]store.Object, error) {
	return s.store.ListObjectsByBucketPrefix(bucket, prefix, includeVersions)
}

// Delete implements spec.md §4.G delete: hard-delete when versioning is
// off, soft-delete (keep prior generations addressable) when it is on.
func (s *Service) Delete(bucket, name string) error {
	b, err := s.store.GetBucket(bucket)
	if err != nil {
		return err
	}
	filePath, err := s.store.DeleteObjectLogical(bucket, name, b.VersioningEnabled)
	if err != nil {
		return err
	}
	if filePath != "" {
		_ = s.bytes.Delete(filePath)
	}
	return nil
}

// Copy duplicates the source object's bytes to a destination object,
// per spec.md §4.G copy/rewriteTo. Destination versioning follows the same
// rules as a direct upload to that name: a brand-new destination lands at
// generation 1 exactly as the specification describes; overwriting an
// existing destination bumps its generation rather than resetting to 1,
// so the generation-monotonicity invariant (spec.md §8, invariant 2) holds
// for both cases.
func (s *Service) Copy(ctx context.Context, srcBucket, srcName string, srcGeneration int64, dstBucket, dstName string) (store.Object, error) {
	src, err := s.getVersion(srcBucket, srcName, srcGeneration)
	if err != nil {
		return store.Object{}, err
	}
	dstBkt, err := s.store.GetBucket(dstBucket)
	if err != nil {
		return store.Object{}, err
	}
	r, err := s.bytes.Open(src.FilePath)
	if err != nil {
		return store.Object{}, err
	}
	defer r.Close()

	pending, err := s.bytes.WriteTemp(dstBucket, dstName, r)
	if err != nil {
		return store.Object{}, err
	}

	var final store.Object
	lockErr := s.store.WithObjectLock(dstBucket, dstName, func(tx *buntdb.Tx) error {
		oldGen, exists, err := store.PeekLatestGeneration(tx, dstBucket, dstName)
		if err != nil {
			return err
		}
		var relocatedOldPath string
		if exists && dstBkt.VersioningEnabled {
			relocatedOldPath, err = s.bytes.PreserveVersion(dstBucket, dstName, oldGen)
			if err != nil {
				return err
			}
		}
		livePath, err := s.bytes.CommitLive(dstBucket, dstName, pending)
		if err != nil {
			return err
		}
		meta := store.Object{
			Bucket:       dstBucket,
			Name:         dstName,
			Size:         pending.Size,
			ContentType:  src.ContentType,
			MD5Base64:    pending.MD5Base64,
			CRC32CBase64: pending.CRC32CBase64,
			FilePath:     livePath,
			StorageClass: dstBkt.StorageClass,
			ACL:          dstBkt.DefaultObjectACL,
			CreateTime:   time.Now().UTC(),
		}
		f, err := s.store.UpsertObjectVersion(tx, dstBkt.VersioningEnabled, meta, relocatedOldPath)
		if err != nil {
			return err
		}
		final = f
		return nil
	})
	if lockErr != nil {
		s.bytes.Discard(pending)
		return store.Object{}, lockErr
	}
	return final, nil
}

// UpdateObjectACL and UpdateBucketDefaultACL validate against the fixed
// four-value enumeration before delegating to the store.
func (s *Service) UpdateObjectACL(bucket, name string, acl store.ACL) error {
	if !store.ValidACL(acl) {
		return apierror.New(apierror.InvalidArgument, "invalid acl %q", acl)
	}
	return s.store.UpdateObjectACL(bucket, name, acl)
}

func (s *Service) UpdateBucketDefaultACL(bucket string, acl store.ACL) (store.Bucket, error) {
	if !store.ValidACL(acl) {
		return store.Bucket{}, apierror.New(apierror.InvalidArgument, "invalid acl %q", acl)
	}
	b, err := s.store.GetBucket(bucket)
	if err != nil {
		return store.Bucket{}, err
	}
	b.DefaultObjectACL = acl
	return s.UpdateBucket(b)
}

// SignedURLResult is the body of a signedUrl issuance response.
type SignedURLResult struct {
	SignedURL string
	ExpiresAt time.Time
}

// IssueSignedURL validates method/expiresIn, mints a 256-bit token, and
// records the session (spec.md §4.G signed URLs).
func (s *Service) IssueSignedURL(bucket, name, method string, expiresInSeconds int64) (SignedURLResult, error) {
	if method != "GET" {
		return SignedURLResult{}, apierror.New(apierror.InvalidArgument, "only GET signed URLs are supported")
	}
	if expiresInSeconds < 1 || expiresInSeconds > maxExpiresIn {
		return SignedURLResult{}, apierror.New(apierror.InvalidArgument, "expiresIn must be between 1 and %d seconds", maxExpiresIn)
	}
	if _, err := s.store.GetObjectLatest(bucket, name); err != nil {
		return SignedURLResult{}, err
	}

	token, err := randomURLSafeToken(32)
	if err != nil {
		return SignedURLResult{}, apierror.Wrap(apierror.Internal, err, "generate signed url token")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(expiresInSeconds) * time.Second)
	sess := store.SignedURLSession{
		Token:      token,
		Bucket:     bucket,
		ObjectName: name,
		Method:     method,
		ExpiresAt:  expiresAt,
		CreateTime: now,
	}
	if err := s.store.CreateSignedURLSession(sess); err != nil {
		return SignedURLResult{}, err
	}
	return SignedURLResult{
		SignedURL: s.selfBase + "/signed/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// RedeemSignedURL looks up token and, if live, streams the referenced
// object -- the store layer evicts expired sessions it encounters along
// the way (spec.md §4.G signed URL redeem).
func (s *Service) RedeemSignedURL(token string) (DownloadResult, error) {
	sess, err := s.store.RedeemSignedURLSession(token, time.Now().UTC())
	if err != nil {
		return DownloadResult{}, err
	}
	return s.Download(sess.Bucket, sess.ObjectName, 0)
}

// SweepExpiredSignedURLs is invoked by the background sweeper named in
// spec.md §9.
func (s *Service) SweepExpiredSignedURLs() (int, error) {
	return s.store.SweepExpiredSignedURLs(time.Now().UTC())
}

func randomURLSafeToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
