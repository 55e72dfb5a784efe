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

package serializer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/NVIDIA/recordkeeper/pkg/header"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestParseConfigMapURI(t *testing.T) {
	tests := []struct {
		name          string
		uri           string
		wantNamespace string
		wantName      string
		wantErr       bool
	}{
		{name: "valid URI", uri: "cm://records/export", wantNamespace: "records", wantName: "export"},
		{name: "valid URI with spaces", uri: "cm://records / export ", wantNamespace: "records", wantName: "export"},
		{name: "missing scheme", uri: "records/export", wantErr: true},
		{name: "wrong scheme", uri: "http://records/export", wantErr: true},
		{name: "missing name", uri: "cm://records/", wantErr: true},
		{name: "missing namespace", uri: "cm:///export", wantErr: true},
		{name: "missing separator", uri: "cm://records", wantErr: true},
		{name: "empty URI", uri: "", wantErr: true},
		{name: "only scheme", uri: "cm://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			namespace, name, err := parseConfigMapURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseConfigMapURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if namespace != tt.wantNamespace {
				t.Errorf("parseConfigMapURI() namespace = %v, want %v", namespace, tt.wantNamespace)
			}
			if name != tt.wantName {
				t.Errorf("parseConfigMapURI() name = %v, want %v", name, tt.wantName)
			}
		})
	}
}

func TestNewConfigMapWriter_UnknownFormatDefaultsToJSON(t *testing.T) {
	w := NewConfigMapWriter("default", "export", Format("unknown"))
	if w.format != FormatJSON {
		t.Errorf("expected JSON, got %s", w.format)
	}
}

type exportDoc struct {
	header.Header `json:",inline"`
	Items         []string `json:"items"`
}

func TestConfigMapWriter_Serialize(t *testing.T) {
	cs := fake.NewClientset()
	w := NewConfigMapWriter("records", "export", FormatJSON, WithKubeClient(cs))

	doc := exportDoc{Header: *header.New(header.WithKind(header.KindRecordList), header.WithMetadata("version", "v1.2.3")), Items: []string{"Lily"}}
	if err := w.Serialize(context.Background(), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cm, err := cs.CoreV1().ConfigMaps("records").Get(context.Background(), "export", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("expected ConfigMap to exist: %v", err)
	}
	if cm.Data["format"] != "json" {
		t.Errorf("expected format json, got %q", cm.Data["format"])
	}
	if cm.Labels["app.kubernetes.io/component"] != "recordlist" {
		t.Errorf("unexpected component label %q", cm.Labels["app.kubernetes.io/component"])
	}
	if cm.Labels["app.kubernetes.io/version"] != "v1.2.3" {
		t.Errorf("unexpected version label %q", cm.Labels["app.kubernetes.io/version"])
	}

	var got exportDoc
	if err := json.Unmarshal([]byte(cm.Data["export.json"]), &got); err != nil {
		t.Fatalf("invalid export content: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0] != "Lily" {
		t.Errorf("unexpected items %v", got.Items)
	}
}
