package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
	"submerge/internal/shared/types"
)

// LoadIni 加载 ini 行为配置文件。
// 配置文件缺失不算错误，此时内置默认值继续生效；
// 无论文件是否存在，环境变量覆盖都会在最后应用。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err == nil {
		if mapErr := iniFile.MapTo(cfg); mapErr != nil {
			return mapErr
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	overrideFromEnvString(&cfg.SourceConf.ListingURL, "SUBMERGE_LISTING_URL")
	overrideFromEnvFloat(&cfg.FilterConf.MinRemainGB, "SUBMERGE_MIN_REMAIN_GB")
	overrideFromEnvString(&cfg.OutputConf.File, "SUBMERGE_OUTPUT_FILE")
	return nil
}

// subListDoc 兼容带 sub-urls 键的 YAML 对象写法。
type subListDoc struct {
	SubUrls []string `yaml:"sub-urls"`
}

// LoadSubList 加载人工维护的订阅清单文件。支持三种形态：
// YAML 字符串数组、带 sub-urls 键的 YAML 对象、每行一条链接的纯文本。
// 文件不存在时返回空清单而不是错误。
func LoadSubList(fileName string) ([]string, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sub list file: %w", err)
	}

	var urls []string
	if err := yaml.Unmarshal(data, &urls); err == nil {
		return cleanSubList(urls), nil
	}

	var doc subListDoc
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.SubUrls) > 0 {
		return cleanSubList(doc.SubUrls), nil
	}

	return cleanSubList(strings.Split(string(data), "\n")), nil
}

// cleanSubList 去掉清单中的空行与 # 注释行。
func cleanSubList(raw []string) []string {
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if u == "" || strings.HasPrefix(u, "#") {
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

func overrideFromEnvString(target *string, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvFloat(target *float64, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if floatValue, err := strconv.ParseFloat(envValue, 64); err == nil {
			*target = floatValue
		}
	}
}
