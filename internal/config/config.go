package config

import (
	"encoding/json"
	"encoding/pem"
	"os"

	"golang.org/x/exp/slog"
)

// MysqlConfig 存储数据库连接信息
type MysqlConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	DBName   string `json:"dbname"`
}

type Tls struct {
	CertPath string `json:"cert_path"`
	KeyPath  string `json:"key_path"`
}

type Config struct {
	JwtIssuer      string      `json:"jwt_issuer"`
	InkAPIKey      string      `json:"api_key"`
	Tls            Tls         `json:"tls"`
	Mysql          MysqlConfig `json:"mysql"`
	Loglevel       string      `json:"log_level"`
	ServerPort     int32       `json:"server_port"`
	JwtKeyPath     string      `json:"jwt_key_path"` // jwt加密密钥路径
	JwtKey         []byte
	ProofPath      string  `json:"proof_path"`       // 支付凭证存储路径
	ProofMaxSizeMB int64   `json:"proof_max_size_mb"`
	ProofSubmitQPS float64 `json:"proof_submit_qps"` // 凭证提交限流
}

var (
	config *Config
)

func LoadConfig(path string) {
	configData, err := os.ReadFile(path)
	if err != nil {
		slog.Error("error load config:"+err.Error(), "path", path)
		return
	}

	config = &Config{}
	if err := json.Unmarshal(configData, config); err != nil {
		slog.Error("error load config:"+err.Error(), "path", path)
		return
	}

	pemData, err := os.ReadFile(config.JwtKeyPath)
	if err != nil {
		slog.Error("无法读取jwt私钥文件:" + err.Error())
	}
	// 解码PEM格式的密钥
	block, _ := pem.Decode(pemData)
	if block == nil {
		slog.Error("无效的PEM格式")
	} else {
		config.JwtKey = block.Bytes
	}
}

func GetConfig() *Config {
	if config == nil {
		LoadConfig("./config.json")
	}
	return config
}
