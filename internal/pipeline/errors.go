/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package pipeline

import "fmt"

// ErrIngestion represents failures while parsing an uploaded file
type ErrIngestion struct {
	Msg string
	Err error
}

// ErrStore represents session store failures
type ErrStore struct {
	Msg string
	Err error
}

// ErrLLM represents language model failures
type ErrLLM struct {
	Msg string
	Err error
}

// ErrLLMUnavailable is returned when no language model is configured
type ErrLLMUnavailable struct {
	Msg string
}

func (e *ErrIngestion) Error() string {
	return fmt.Sprintf("ingestion error: %s: %v", e.Msg, e.Err)
}

func (e *ErrIngestion) Unwrap() error {
	return e.Err
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("store error: %s: %v", e.Msg, e.Err)
}

func (e *ErrStore) Unwrap() error {
	return e.Err
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("language model error: %s: %v", e.Msg, e.Err)
}

func (e *ErrLLM) Unwrap() error {
	return e.Err
}

func (e *ErrLLMUnavailable) Error() string {
	return fmt.Sprintf("language model unavailable: %s", e.Msg)
}
