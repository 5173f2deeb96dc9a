package ledger

import "time"

// nowFunc is a seam so tests can pin balance_calculated_at without sleeping.
var nowFunc = time.Now
