package session

// HandleProbe applies one health probe outcome. Only a change of outcome
// produces effects; repeated successes or failures are no-ops.
func (s *Session) HandleProbe(ok bool) []Effect {
	switch {
	case ok && s.conn == Disconnected:
		s.conn = Connected
		s.status = StatusConnected
		s.logger.Info().Msg("agent server connected")
		return []Effect{OpenStream{}}
	case !ok && s.conn == Connected:
		s.conn = Disconnected
		s.status = StatusConnectionLost
		s.logger.Warn().Msg("agent server connection lost")
		return []Effect{CloseStream{}}
	}
	return nil
}
