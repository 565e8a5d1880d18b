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

// Package core provides the core business logic of the usage analytics
// subsystem: period-bucketed counter tables, the bootstrap loader, and the
// background sync worker that persists counter deltas to the remote store.
package core

import (
	"fmt"
	"time"
)

// TotalBucket is the sentinel bucket key that accumulates all-time counts.
const TotalBucket = "total"

// PeriodKeys derives the five bucket keys an event at t belongs to:
// day (YYYY-MM-DD), week (YYYY-Www), month (YYYY-MM), year (YYYY), and the
// all-time "total" sentinel. Derivation always uses UTC.
//
// Week keys use ISO week numbering, so the year component is the ISO week
// year rather than the calendar year. That keeps week keys collision-free
// across year boundaries: the same week-of-year ordinal in different years
// never maps to the same key.
func PeriodKeys(t time.Time) [5]string {
	t = t.UTC()
	isoYear, isoWeek := t.ISOWeek()
	return [5]string{
		t.Format("2006-01-02"),
		fmt.Sprintf("%04d-W%02d", isoYear, isoWeek),
		t.Format("2006-01"),
		t.Format("2006"),
		TotalBucket,
	}
}
