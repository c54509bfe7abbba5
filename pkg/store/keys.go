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

package store

import "fmt"

// Key layout. Every entity is stored as a JSON blob under a composite key;
// secondary keys exist purely to enforce uniqueness constraints or support
// reverse lookups, and never carry data that isn't also in the primary row.

func projectKey(id string) string { return "project:" + id }

func projectPrefix() string { return "project:" }

func networkKey(project, name string) string { return fmt.Sprintf("network:%s:%s", project, name) }

func networkPrefix(project string) string { return fmt.Sprintf("network:%s:", project) }

func subnetKey(project, network, name string) string {
	return fmt.Sprintf("subnet:%s:%s:%s", project, network, name)
}

func subnetNetworkPrefix(project, network string) string {
	return fmt.Sprintf("subnet:%s:%s:", project, network)
}

func instanceKey(project, zone, name string) string {
	return fmt.Sprintf("instance:%s:%s:%s", project, zone, name)
}

func instanceProjectZonePrefix(project, zone string) string {
	return fmt.Sprintf("instance:%s:%s:", project, zone)
}

func instanceProjectPrefix(project string) string { return fmt.Sprintf("instance:%s:", project) }

func containerIDKey(id string) string { return "containerid:" + id }

func ipKey(network, ip string) string { return fmt.Sprintf("ip:%s:%s", network, ip) }

func bucketKey(name string) string { return "bucket:" + name }

func bucketPrefix() string { return "bucket:" }

// objectGenKey is the fixed-width, lexically-sortable key for one version
// of one object.
func objectGenKey(bucket, name string, generation int64) string {
	return fmt.Sprintf("object:%s\x00%s\x00%019d", bucket, name, generation)
}

func objectNamePrefix(bucket, name string) string {
	return fmt.Sprintf("object:%s\x00%s\x00", bucket, name)
}

func objectBucketPrefix(bucket string) string {
	return fmt.Sprintf("object:%s\x00", bucket)
}

func objectLatestKey(bucket, name string) string {
	return fmt.Sprintf("object_latest:%s\x00%s", bucket, name)
}

func objectLatestBucketPrefix(bucket string) string {
	return fmt.Sprintf("object_latest:%s\x00", bucket)
}

func serviceAccountKey(project, accountID string) string {
	return fmt.Sprintf("serviceaccount:%s:%s", project, accountID)
}

func serviceAccountProjectPrefix(project string) string {
	return fmt.Sprintf("serviceaccount:%s:", project)
}

func signedURLKey(token string) string { return "signedurl:" + token }

func signedURLPrefix() string { return "signedurl:" }

func routeKey(project, name string) string { return fmt.Sprintf("route:%s:%s", project, name) }

func routePrefix(project string) string { return fmt.Sprintf("route:%s:", project) }
