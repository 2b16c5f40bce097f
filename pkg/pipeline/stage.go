/*
Copyright 2025 The rime-sim Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pipeline

import "context"

// StageFuncs adapts a set of optional hook functions into a Stage. Nil
// hooks are no-ops, so kernel implementations only supply the phases they
// participate in.
type StageFuncs struct {
	StageName     string
	OnInitialise  func(ctx context.Context) error
	OnPreExecute  func(ctx context.Context) error
	OnExecute     func(ctx context.Context) error
	OnPostExecute func(ctx context.Context) error
	OnShutdown    func(ctx context.Context) error
}

var _ Stage = (*StageFuncs)(nil)

func (s *StageFuncs) Name() string { return s.StageName }

func (s *StageFuncs) Initialise(ctx context.Context) error {
	if s.OnInitialise == nil {
		return nil
	}
	return s.OnInitialise(ctx)
}

func (s *StageFuncs) PreExecute(ctx context.Context) error {
	if s.OnPreExecute == nil {
		return nil
	}
	return s.OnPreExecute(ctx)
}

func (s *StageFuncs) Execute(ctx context.Context) error {
	if s.OnExecute == nil {
		return nil
	}
	return s.OnExecute(ctx)
}

func (s *StageFuncs) PostExecute(ctx context.Context) error {
	if s.OnPostExecute == nil {
		return nil
	}
	return s.OnPostExecute(ctx)
}

func (s *StageFuncs) Shutdown(ctx context.Context) error {
	if s.OnShutdown == nil {
		return nil
	}
	return s.OnShutdown(ctx)
}
