// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import "fmu-settings/internal/launcher"

type eventMsg struct{ ev launcher.Event } // Progress from the launcher
type eventsClosedMsg struct{}             // The launcher returned; nothing more will arrive
