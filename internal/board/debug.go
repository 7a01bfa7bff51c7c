package board

// DebugMoveValidation gates the search and UCI layers' expensive internal
// consistency assertions (king presence, occupancy/piece-bitboard
// agreement, post-unmake hash restoration). Off by default; enabled by the
// host surface's debug toggle.
var DebugMoveValidation = false
