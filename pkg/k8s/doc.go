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

// Package k8s groups the Kubernetes integration of recordkeeper.
//
// # Sub-packages
//
// client: shared clientset with in-cluster or kubeconfig authentication
//
//	clientset, _, err := client.GetKubeClient()
//	if err != nil {
//	    return err
//	}
//
// The clientset backs the ConfigMap record store (pkg/store/configmap) and
// ConfigMap output of rkctl (cm://namespace/name in pkg/serializer).
//
// # Thread Safety
//
// client.GetKubeClient initializes once with sync.Once and the returned
// clientset is safe for concurrent use.
package k8s
