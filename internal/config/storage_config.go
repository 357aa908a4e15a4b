package config

func (c mainConfig) GetSessionDriver() string {
	return c.lookup(sessionDriverEnvVar, defaultSessionDriver)
}

// GetSessionDir returns the directory the file driver keeps session records in.
func (c mainConfig) GetSessionDir() string {
	return c.lookup(sessionFileEnvVar, defaultSessionDir)
}

func (c mainConfig) GetBoltPath() string {
	return c.lookup(boltPathEnvVar, defaultBoltPath)
}

func (c mainConfig) GetRedisAddr() string {
	return c.lookup(redisAddrEnvVar, defaultRedisAddr)
}

func (c mainConfig) GetRedisPassword() string {
	return c.lookup(redisPasswordEnvVar, "")
}

func (c mainConfig) GetRedisDB() int {
	n, _ := c.lookupInt(redisDBEnvVar, 0)
	return n
}

// GetSessionKey returns an explicit storage key, or "" to derive one from the credentials.
func (c mainConfig) GetSessionKey() string {
	return c.lookup(sessionKeyEnvVar, "")
}
