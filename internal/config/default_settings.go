package config

type defaultSettingKey uint

const (
	BINDADDRESS  defaultSettingKey = 0x0
	MATCHMODE    defaultSettingKey = 0x1
	SUBSTITUTION defaultSettingKey = 0x2
	TOLERANCE    defaultSettingKey = 0x3
)

var defaultSettings = map[defaultSettingKey]interface{}{
	BINDADDRESS:  "127.0.0.1:8080",
	MATCHMODE:    "background",
	SUBSTITUTION: "transparent",
	TOLERANCE:    uint32(30),
}
