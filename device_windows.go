// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package denoise

import (
	_ "github.com/born-ml/denoise/internal/backend/webgpu"
)
