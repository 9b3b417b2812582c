package media

import "github.com/lanikai/alohareader/internal/logging"

var log = logging.DefaultLogger.WithTag("media")
