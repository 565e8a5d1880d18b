// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(FlushTotal)
	FlushTotal.Inc()
	require.Equal(t, before+1, testutil.ToFloat64(FlushTotal))

	cells := testutil.ToFloat64(FlushCellsTotal)
	FlushCellsTotal.Add(10)
	require.Equal(t, cells+10, testutil.ToFloat64(FlushCellsTotal))
}

func TestRegisterIsIdempotentAndServes(t *testing.T) {
	Register()
	Register() // second call must not panic on duplicate registration

	RecordsTotal.Inc()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "docsifer_records_total")
}
