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

package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/apierror"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
)

type bucketResource struct {
	Kind                 string            `json:"kind"`
	Name                 string            `json:"name"`
	SelfLink             string            `json:"selfLink"`
	ProjectNumber        string            `json:"projectNumber,omitempty"`
	Location             string            `json:"location"`
	StorageClass         string            `json:"storageClass"`
	Versioning           *versioningField  `json:"versioning,omitempty"`
	DefaultObjectACL     []aclEntry        `json:"defaultObjectAcl,omitempty"`
	Labels               map[string]string `json:"labels,omitempty"`
	TimeCreated          string            `json:"timeCreated"`
	Updated              string            `json:"updated"`
}

type versioningField struct {
	Enabled bool `json:"enabled"`
}

type aclEntry struct {
	Entity string `json:"entity"`
	Role   string `json:"role"`
}

func aclToEntries(acl store.ACL) []aclEntry {
	switch acl {
	case store.ACLPublicRead:
		return []aclEntry{{Entity: "allUsers", Role: "READER"}}
	case store.ACLPublicReadWrite:
		return []aclEntry{{Entity: "allUsers", Role: "WRITER"}}
	case store.ACLAuthenticatedRead:
		return []aclEntry{{Entity: "allAuthenticatedUsers", Role: "READER"}}
	default:
		return nil
	}
}

func toBucketResource(svc *Services, b store.Bucket) bucketResource {
	return bucketResource{
		Kind:             "storage#bucket",
		Name:             b.Name,
		SelfLink:         svc.SelfBase + "/storage/v1/b/" + b.Name,
		Location:         b.Location,
		StorageClass:     b.StorageClass,
		Versioning:       &versioningField{Enabled: b.VersioningEnabled},
		DefaultObjectACL: aclToEntries(b.DefaultObjectACL),
		Labels:           b.Labels,
		TimeCreated:      rfc3339(b.CreateTime),
		Updated:          rfc3339(b.UpdateTime),
	}
}

type objectResource struct {
	Kind            string `json:"kind"`
	ID              string `json:"id"`
	SelfLink        string `json:"selfLink"`
	Name            string `json:"name"`
	Bucket          string `json:"bucket"`
	Generation      string `json:"generation"`
	Metageneration  string `json:"metageneration"`
	ContentType     string `json:"contentType,omitempty"`
	ContentEncoding string `json:"contentEncoding,omitempty"`
	CacheControl    string `json:"cacheControl,omitempty"`
	Size            string `json:"size"`
	MD5Hash         string `json:"md5Hash,omitempty"`
	CRC32C          string `json:"crc32c,omitempty"`
	StorageClass    string `json:"storageClass,omitempty"`
	TimeCreated     string `json:"timeCreated"`
	MediaLink       string `json:"mediaLink"`
}

func toObjectResource(svc *Services, o store.Object) objectResource {
	return objectResource{
		Kind:           "storage#object",
		ID:             o.Bucket + "/" + o.Name + "/" + strconv.FormatInt(o.Generation, 10),
		SelfLink:       svc.SelfBase + "/storage/v1/b/" + o.Bucket + "/o/" + o.Name,
		Name:           o.Name,
		Bucket:         o.Bucket,
		Generation:     strconv.FormatInt(o.Generation, 10),
		Metageneration: strconv.FormatInt(o.Metageneration, 10),
		ContentType:    o.ContentType,
		ContentEncoding: o.ContentEncoding,
		CacheControl:   o.CacheControl,
		Size:           strconv.FormatInt(o.Size, 10),
		MD5Hash:        o.MD5Base64,
		CRC32C:         o.CRC32CBase64,
		StorageClass:   o.StorageClass,
		TimeCreated:    rfc3339(o.CreateTime),
		MediaLink:      svc.SelfBase + "/download/storage/v1/b/" + o.Bucket + "/o/" + o.Name + "?alt=media",
	}
}

func registerStorageRoutes(mux *http.ServeMux, svc *Services) {
	registerBucketRoutes(mux, svc)
	registerObjectRoutes(mux, svc)
	registerUploadRoutes(mux, svc)
	registerDownloadRoutes(mux, svc)
	registerObjectActionRoutes(mux, svc)
	registerACLRoutes(mux, svc)
	registerSignedURLRoutes(mux, svc)
}

func registerBucketRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /storage/v1/b", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		project := r.URL.Query().Get("project")
		var body struct {
			Name         string `json:"name"`
			Location     string `json:"location"`
			StorageClass string `json:"storageClass"`
			Versioning   *versioningField `json:"versioning"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		versioning := body.Versioning != nil && body.Versioning.Enabled
		if body.StorageClass == "" {
			body.StorageClass = "STANDARD"
		}
		if body.Location == "" {
			body.Location = "US"
		}
		b, err := svc.Storage.CreateBucket(project, body.Name, body.Location, body.StorageClass, versioning, store.ACLPrivate)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBucketResource(svc, b))
	}))

	mux.HandleFunc("GET /storage/v1/b", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		bs, err := svc.Storage.ListBuckets(r.URL.Query().Get("project"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]bucketResource, 0, len(bs))
		for _, b := range bs {
			out = append(out, toBucketResource(svc, b))
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "storage#buckets", "items": out})
	}))

	mux.HandleFunc("GET /storage/v1/b/{bucket}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.Storage.GetBucket(r.PathValue("bucket"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBucketResource(svc, b))
	}))

	mux.HandleFunc("DELETE /storage/v1/b/{bucket}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Storage.DeleteBucket(r.PathValue("bucket")); err != nil {
			writeError(svc, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func registerObjectRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("GET /storage/v1/b/{bucket}/o", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		bucket := r.PathValue("bucket")
		prefix := r.URL.Query().Get("prefix")
		includeVersions := r.URL.Query().Get("versions") == "true"
		objs, err := svc.Storage.List(bucket, prefix, includeVersions)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		out := make([]objectResource, 0, len(objs))
		for _, o := range objs {
			out = append(out, toObjectResource(svc, o))
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "storage#objects", "items": out})
	}))

	mux.HandleFunc("GET /storage/v1/b/{bucket}/o/{object...}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		bucket, name := r.PathValue("bucket"), r.PathValue("object")
		// The object-ACL GET endpoint (spec.md §6) shares this wildcard
		// pattern with plain metadata GET, since the standard mux rejects
		// two GET registrations differing only by wildcard name.
		const aclSuffix = "/acl"
		if strings.HasSuffix(name, aclSuffix) {
			handleGetObjectACL(svc, w, bucket, strings.TrimSuffix(name, aclSuffix))
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			streamObject(svc, w, r, bucket, name)
			return
		}
		gen := parseGeneration(r)
		o, err := svc.Storage.GetMetadata(bucket, name, gen)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toObjectResource(svc, o))
	}))

	mux.HandleFunc("DELETE /storage/v1/b/{bucket}/o/{object...}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Storage.Delete(r.PathValue("bucket"), r.PathValue("object")); err != nil {
			writeError(svc, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func parseGeneration(r *http.Request) int64 {
	gen, _ := strconv.ParseInt(r.URL.Query().Get("generation"), 10, 64)
	return gen
}

func streamObject(svc *Services, w http.ResponseWriter, r *http.Request, bucket, name string) {
	gen := parseGeneration(r)
	result, err := svc.Storage.Download(bucket, name, gen)
	if err != nil {
		writeError(svc, w, err)
		return
	}
	defer result.Body.Close()
	o := result.Object
	w.Header().Set("Content-Type", o.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(o.Size, 10))
	w.Header().Set("ETag", o.MD5Base64)
	w.Header().Set("x-goog-generation", strconv.FormatInt(o.Generation, 10))
	w.Header().Set("x-goog-metageneration", strconv.FormatInt(o.Metageneration, 10))
	w.Header().Set("x-goog-hash", fmt.Sprintf("md5=%s,crc32c=%s", o.MD5Base64, o.CRC32CBase64))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, lastSegment(o.Name)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, result.Body)
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func registerDownloadRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("GET /download/storage/v1/b/{bucket}/o/{object...}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		streamObject(svc, w, r, r.PathValue("bucket"), r.PathValue("object"))
	}))
}

func registerUploadRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /upload/storage/v1/b/{bucket}/o", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		bucket := r.PathValue("bucket")
		name := r.URL.Query().Get("name")
		body := r.Body
		contentType := r.Header.Get("Content-Type")

		if mediaType, params, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mediaType, "multipart/") {
			mr := multipart.NewReader(r.Body, params["boundary"])
			metaPart, err := mr.NextPart()
			if err != nil {
				writeError(svc, w, badJSON(err))
				return
			}
			var meta struct {
				Name        string `json:"name"`
				ContentType string `json:"contentType"`
			}
			if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
				writeError(svc, w, badJSON(err))
				return
			}
			dataPart, err := mr.NextPart()
			if err != nil {
				writeError(svc, w, badJSON(err))
				return
			}
			if meta.Name != "" {
				name = meta.Name
			}
			contentType = dataPart.Header.Get("Content-Type")
			if contentType == "" {
				contentType = meta.ContentType
			}
			body = io.NopCloser(dataPart)
		}

		if name == "" {
			writeError(svc, w, apierror.New(apierror.InvalidArgument, "object name is required"))
			return
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		result, err := svc.Storage.Upload(r.Context(), bucket, name, contentType, body)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toObjectResource(svc, result.Object))
	}))
}

// rewriteTo embeds a full destination bucket/object path after the source
// object name; the standard mux's wildcard can only trail a pattern, so
// the combined tail is parsed by hand rather than matched structurally.
func parseRewritePath(srcBucket, tail string) (srcObject, dstBucket, dstObject string, ok bool) {
	marker := "/rewriteTo/b/"
	idx := strings.Index(tail, marker)
	if idx < 0 {
		return "", "", "", false
	}
	srcObject = tail[:idx]
	rest := tail[idx+len(marker):]
	parts := strings.SplitN(rest, "/o/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || srcObject == "" {
		return "", "", "", false
	}
	return srcObject, parts[0], parts[1], true
}

func handleRewriteTo(svc *Services, w http.ResponseWriter, r *http.Request, srcBucket, srcObject, dstBucket, dstObject string) {
	srcGen := parseGeneration(r)
	o, err := svc.Storage.Copy(r.Context(), srcBucket, srcObject, srcGen, dstBucket, dstObject)
	if err != nil {
		writeError(svc, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":     "storage#rewriteResponse",
		"done":     true,
		"resource": toObjectResource(svc, o),
	})
}

func handleIssueSignedURL(svc *Services, w http.ResponseWriter, r *http.Request, bucket, name string) {
	var body struct {
		Method    string `json:"method"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(svc, w, badJSON(err))
		return
	}
	if body.Method == "" {
		body.Method = "GET"
	}
	result, err := svc.Storage.IssueSignedURL(bucket, name, body.Method, body.ExpiresIn)
	if err != nil {
		writeError(svc, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signedUrl": result.SignedURL,
		"expiresAt": rfc3339(result.ExpiresAt),
	})
}

// registerObjectActionRoutes handles the two POST-with-suffix object
// actions (rewriteTo, signedUrl) under one registration, since the
// standard mux rejects two patterns differing only by wildcard name.
func registerObjectActionRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("POST /storage/v1/b/{bucket}/o/{tail...}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		bucket := r.PathValue("bucket")
		tail := r.PathValue("tail")
		if srcObject, dstBucket, dstObject, ok := parseRewritePath(bucket, tail); ok {
			handleRewriteTo(svc, w, r, bucket, srcObject, dstBucket, dstObject)
			return
		}
		const signedSuffix = "/signedUrl"
		if strings.HasSuffix(tail, signedSuffix) {
			handleIssueSignedURL(svc, w, r, bucket, strings.TrimSuffix(tail, signedSuffix))
			return
		}
		writeError(svc, w, apierror.New(apierror.NotFound, "unsupported path"))
	}))
}

func handleGetObjectACL(svc *Services, w http.ResponseWriter, bucket, name string) {
	o, err := svc.Storage.GetMetadata(bucket, name, 0)
	if err != nil {
		writeError(svc, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": "storage#objectAccessControls", "items": aclToEntries(o.ACL)})
}

func registerACLRoutes(mux *http.ServeMux, svc *Services) {
	mux.HandleFunc("PATCH /storage/v1/b/{bucket}/o/{tail...}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		tail := r.PathValue("tail")
		const suffix = "/acl"
		if !strings.HasSuffix(tail, suffix) {
			writeError(svc, w, apierror.New(apierror.NotFound, "unsupported path"))
			return
		}
		name := strings.TrimSuffix(tail, suffix)
		var body struct {
			ACL string `json:"acl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		bucket := r.PathValue("bucket")
		if err := svc.Storage.UpdateObjectACL(bucket, name, store.ACL(body.ACL)); err != nil {
			writeError(svc, w, err)
			return
		}
		o, err := svc.Storage.GetMetadata(bucket, name, 0)
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toObjectResource(svc, o))
	}))

	mux.HandleFunc("PATCH /storage/v1/b/{bucket}/defaultObjectAcl", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ACL string `json:"acl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(svc, w, badJSON(err))
			return
		}
		b, err := svc.Storage.UpdateBucketDefaultACL(r.PathValue("bucket"), store.ACL(body.ACL))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBucketResource(svc, b))
	}))
}

func registerSignedURLRoutes(mux *http.ServeMux, svc *Services) {
	// Signed URL redemption is a plain, non-API path -- clients fetch it
	// directly with no auth headers, matching the issued signedUrl value.
	mux.HandleFunc("GET /signed/{token}", withDeadline(svc, func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Storage.RedeemSignedURL(r.PathValue("token"))
		if err != nil {
			writeError(svc, w, err)
			return
		}
		defer result.Body.Close()
		o := result.Object
		w.Header().Set("Content-Type", o.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(o.Size, 10))
		w.Header().Set("x-goog-generation", strconv.FormatInt(o.Generation, 10))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, result.Body)
	}))
}
