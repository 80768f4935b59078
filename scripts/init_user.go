// Command init_user 交互式创建后台管理员账号。
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/firmsite/internal/config"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/service"
)

func main() {
	email := flag.String("email", "", "管理员邮箱")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal("加载 .env 失败:", err)
	}
	cfg := config.Load()

	// 初始化数据库
	gdb, err := db.Open(db.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseSource()})
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	if strings.TrimSpace(*email) == "" {
		fmt.Print("邮箱: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatal("读取邮箱失败:", err)
		}
		*email = strings.TrimSpace(line)
	}

	fmt.Print("密码: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		log.Fatal("读取密码失败:", err)
	}
	if len(password) < service.MinPasswordLength {
		log.Fatalf("密码至少 %d 位", service.MinPasswordLength)
	}

	if err := db.EnsureUser(gdb, *email, string(password)); err != nil {
		log.Fatal("创建用户失败:", err)
	}
	fmt.Println("管理员账号已就绪:", db.NormalizeEmail(*email))
}
