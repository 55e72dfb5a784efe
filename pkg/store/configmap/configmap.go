// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package configmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/util/retry"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/recordkeeper/pkg/defaults"
	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/k8s/client"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/store"
)

const (
	// GenerationAnnotation holds the collection's revision counter.
	GenerationAnnotation = "recordkeeper.nvidia.com/generation"

	// EpochAnnotation identifies one lifetime of the ConfigMap. The
	// ConfigMap is deleted once empty and its generation restarts, so the
	// epoch keeps revisions from a previous lifetime from matching again.
	EpochAnnotation = "recordkeeper.nvidia.com/epoch"

	dataKeySuffix = ".json"
	maxDataKeyLen = 253
)

var configMapResource = schema.GroupResource{Resource: "configmaps"}

// document is the stored form of one record.
type document struct {
	Revision  string          `json:"revision"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Record    json.RawMessage `json:"record"`
}

// Store is a store.Store backed by a single ConfigMap.
type Store struct {
	client    client.Interface
	namespace string
	name      string
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns a store that keeps its records in namespace/name.
func New(c client.Interface, namespace, name string) *Store {
	return &Store{client: c, namespace: namespace, name: name, now: time.Now}
}

// ParseRef splits "namespace/name" into its parts. A bare name uses
// client.Namespace().
func ParseRef(ref string) (string, string, error) {
	ns, name, found := strings.Cut(ref, "/")
	if !found {
		ns, name = client.Namespace(), ref
	}
	if ns == "" || name == "" {
		return "", "", rkerrors.New(rkerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid ConfigMap reference %q, want namespace/name", ref))
	}
	return ns, name, nil
}

// Ref returns the store's "namespace/name".
func (s *Store) Ref() string {
	return s.namespace + "/" + s.name
}

func (s *Store) Get(ctx context.Context, key string) (*store.Entry, error) {
	cm, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, rkerrors.NewNotFound(store.Kind, key)
	}
	return entryOf(cm, key)
}

func (s *Store) List(ctx context.Context) ([]store.Entry, error) {
	cm, err := s.load(ctx)
	if err != nil || cm == nil {
		return []store.Entry{}, err
	}

	keys := recordKeys(cm)
	out := make([]store.Entry, 0, len(keys))
	for _, key := range keys {
		e, err := entryOf(cm, key)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, key string, rec record.Record) (*store.Entry, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var created *store.Entry
	err := s.mutate(ctx, func(cm *corev1.ConfigMap) error {
		if _, ok := cm.Data[dataKey(key)]; ok {
			return store.NewExists(key)
		}
		e, err := s.write(cm, key, rec)
		created = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) Put(ctx context.Context, key string, rec record.Record, revision string) (*store.Entry, error) {
	var updated *store.Entry
	err := s.mutate(ctx, func(cm *corev1.ConfigMap) error {
		current, err := entryOf(cm, key)
		if err != nil {
			return err
		}
		if current.Revision != revision {
			return store.NewConflict(key, revision, current.Revision)
		}
		e, err := s.write(cm, key, rec)
		updated = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, key string, revision string) error {
	return s.mutate(ctx, func(cm *corev1.ConfigMap) error {
		current, err := entryOf(cm, key)
		if err != nil {
			return err
		}
		if revision != "" && current.Revision != revision {
			return store.NewConflict(key, revision, current.Revision)
		}
		delete(cm.Data, dataKey(key))
		return nil
	})
}

// Close is a no-op; the Kubernetes client is shared.
func (s *Store) Close() error {
	return nil
}

// load returns the ConfigMap, or nil when it does not exist yet.
func (s *Store) load(ctx context.Context) (*corev1.ConfigMap, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapRequestTimeout)
	defer cancel()

	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(reqCtx, s.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, s.apiError("get", err)
	}
	return cm, nil
}

// mutate runs fn against the current ConfigMap and persists the result,
// repeating the cycle when the API server reports a write conflict.
func (s *Store) mutate(ctx context.Context, fn func(cm *corev1.ConfigMap) error) error {
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		cm, err := s.load(ctx)
		if err != nil {
			return err
		}
		exists := cm != nil
		if !exists {
			cm = s.newConfigMap()
		}
		if cm.Data == nil {
			cm.Data = map[string]string{}
		}

		if err := fn(cm); err != nil {
			return err
		}

		reqCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapRequestTimeout)
		defer cancel()
		cms := s.client.CoreV1().ConfigMaps(s.namespace)

		switch {
		case !exists:
			_, err = cms.Create(reqCtx, cm, metav1.CreateOptions{})
			if apierrors.IsAlreadyExists(err) {
				return apierrors.NewConflict(configMapResource, s.name, err)
			}
		case len(recordKeys(cm)) == 0:
			slog.Debug("deleting empty record collection", "configmap", s.Ref())
			err = cms.Delete(reqCtx, s.name, metav1.DeleteOptions{
				Preconditions: &metav1.Preconditions{
					UID:             ptr.To(cm.UID),
					ResourceVersion: ptr.To(cm.ResourceVersion),
				},
			})
			if apierrors.IsNotFound(err) {
				err = nil
			}
		default:
			_, err = cms.Update(reqCtx, cm, metav1.UpdateOptions{})
		}
		return err
	})
	if err == nil {
		return nil
	}
	if rkerrors.CodeOf(err) != "" {
		return err
	}
	return s.apiError("update", err)
}

// write stores rec under key in cm and returns the resulting entry.
func (s *Store) write(cm *corev1.ConfigMap, key string, rec record.Record) (*store.Entry, error) {
	gen := generation(cm) + 1
	if cm.Annotations == nil {
		cm.Annotations = map[string]string{}
	}
	cm.Annotations[GenerationAnnotation] = strconv.FormatUint(gen, 10)

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to encode record", err)
	}
	doc := document{
		Revision:  revisionOf(cm, gen),
		UpdatedAt: s.now().UTC().Truncate(time.Millisecond),
		Record:    body,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to encode record document", err)
	}
	cm.Data[dataKey(key)] = string(data)

	return &store.Entry{Key: key, Record: rec.Clone(), Revision: doc.Revision, UpdatedAt: doc.UpdatedAt}, nil
}

func (s *Store) newConfigMap() *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      s.name,
			Namespace: s.namespace,
			Annotations: map[string]string{
				EpochAnnotation: newEpoch(),
			},
			Labels: map[string]string{
				"app.kubernetes.io/name":       "recordkeeper",
				"app.kubernetes.io/component":  "records",
				"app.kubernetes.io/managed-by": "rkd",
			},
		},
		Data: map[string]string{},
	}
}

func (s *Store) apiError(op string, err error) error {
	code := rkerrors.ErrCodeUnavailable
	switch {
	case apierrors.IsConflict(err):
		code = rkerrors.ErrCodeConflict
	case apierrors.IsForbidden(err), apierrors.IsUnauthorized(err):
		code = rkerrors.ErrCodeUnauthorized
	case apierrors.IsTimeout(err), apierrors.IsServerTimeout(err):
		code = rkerrors.ErrCodeTimeout
	}
	return rkerrors.WrapWithContext(code, fmt.Sprintf("failed to %s ConfigMap", op), err,
		map[string]any{"configmap": s.Ref()})
}

func entryOf(cm *corev1.ConfigMap, key string) (*store.Entry, error) {
	raw, ok := cm.Data[dataKey(key)]
	if !ok {
		return nil, rkerrors.NewNotFound(store.Kind, key)
	}
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, fmt.Sprintf("corrupt record %q", key), err)
	}
	rec, err := record.DecodeBytes(doc.Record)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, fmt.Sprintf("corrupt record %q", key), err)
	}
	return &store.Entry{Key: key, Record: rec, Revision: doc.Revision, UpdatedAt: doc.UpdatedAt}, nil
}

func recordKeys(cm *corev1.ConfigMap) []string {
	keys := make([]string, 0, len(cm.Data))
	for k := range cm.Data {
		if key, ok := strings.CutSuffix(k, dataKeySuffix); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func generation(cm *corev1.ConfigMap) uint64 {
	gen, err := strconv.ParseUint(cm.Annotations[GenerationAnnotation], 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

func newEpoch() string {
	return uuid.NewString()[:8]
}

// revisionOf prefixes the generation with the ConfigMap's epoch. A
// ConfigMap created without one, for example by hand, gets an epoch on
// its first write.
func revisionOf(cm *corev1.ConfigMap, gen uint64) string {
	epoch := cm.Annotations[EpochAnnotation]
	if epoch == "" {
		epoch = newEpoch()
		cm.Annotations[EpochAnnotation] = epoch
	}
	return epoch + "-" + strconv.FormatUint(gen, 10)
}

func dataKey(key string) string {
	return key + dataKeySuffix
}

func validateKey(key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if len(dataKey(key)) > maxDataKeyLen {
		return rkerrors.NewValidation(rkerrors.FieldError{
			Field:  "key",
			Reason: fmt.Sprintf("must be at most %d characters for the ConfigMap store", maxDataKeyLen-len(dataKeySuffix)),
		})
	}
	return nil
}
