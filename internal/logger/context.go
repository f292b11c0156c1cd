package logger

// Component-specific logger functions

// DB returns a logger for database operations
func DB() Logger {
	return WithField("component", "db")
}

// HTTP returns a logger for the API server
func HTTP() Logger {
	return WithField("component", "http")
}

// Query returns a logger for task listing
func Query() Logger {
	return WithField("component", "query")
}

// Stats returns a logger for aggregate computations
func Stats() Logger {
	return WithField("component", "stats")
}

// Writer returns a logger for task writes
func Writer() Logger {
	return WithField("component", "writer")
}

// Migration returns a logger for migration operations
func Migration() Logger {
	return WithField("component", "migration")
}

// Atlas returns a logger for Atlas operations
func Atlas() Logger {
	return WithField("component", "atlas")
}

// CLI returns a logger for CLI operations
func CLI() Logger {
	return WithField("component", "cli")
}
