// Copyright 2025 Poiesic Systems
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


package badger

import "github.com/poiesic/lattice/storage"

// NewMemoryRepositories creates in-memory graph and job repositories plus
// an ontology store for testing.
// Returns graphRepo, jobRepo, ontologyStore, backend, and error.
// Caller must close the repos and backend when done.
func NewMemoryRepositories() (storage.GraphRepository, storage.JobRepository, *OntologyStore, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	graphRepo, err := NewGraphRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, nil, err
	}

	jobRepo, err := NewJobRepository(backend)
	if err != nil {
		graphRepo.Close()
		backend.Close()
		return nil, nil, nil, nil, err
	}

	ontologyStore := NewOntologyStore(backend)

	return graphRepo, jobRepo, ontologyStore, backend, nil
}
