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

// Package client provides a shared Kubernetes client for the ConfigMap record
// store.
//
// The client is built once with sync.Once and reused, so every store instance
// in the process shares one connection pool:
//
//	clientset, _, err := client.GetKubeClient()
//	if err != nil {
//	    return fmt.Errorf("failed to get kubernetes client: %w", err)
//	}
//	st := configmap.New(clientset, client.Namespace(), "records")
//
// Configuration is discovered in this order:
//   - KUBECONFIG environment variable
//   - ~/.kube/config
//   - In-cluster service account
//
// BuildKubeClient creates an uncached client from an explicit kubeconfig path.
//
// Tests substitute k8s.io/client-go/kubernetes/fake:
//
//	st := configmap.New(fake.NewSimpleClientset(), "default", "records")
package client
