package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("the memory engine has no database to migrate")
)

type commandLine struct {
	db     *sqlx.DB // nil for the memory engine
	usrSvc *user.Service
	gbSvc  *gradebook.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                           - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-teacher|-admin] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                       - reset user's password")
	fmt.Fprintln(cli.out, "  seed                                             - create the demo accounts and classes")
	fmt.Fprintln(cli.out, "  import-roster -class ID -file FILE.xlsx          - enroll the students of a roster")
	fmt.Fprintln(cli.out, "  import-grades -class ID -file FILE.xlsx          - set the grades of a sheet")
	fmt.Fprintln(cli.out, "  export -class ID -file FILE.xlsx                 - write the gradebook of a class")
	fmt.Fprintln(cli.out, "  report -class ID                                 - print the grades of a class")
}

// promptPassword reads a password without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserTeacher := addUserCmd.Bool("teacher", false, "Create a teacher account.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	classFlags := func(name string, withFile bool) (*flag.FlagSet, *string, *string) {
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(cli.out)
		class := fs.String("class", "", "The class ID.")
		file := new(string)
		if withFile {
			file = fs.String("file", "", "The .xlsx workbook.")
		}
		return fs, class, file
	}

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, *addUserTeacher, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "seed":
		return cli.seed()

	case "import-roster", "import-grades", "export":
		fs, class, file := classFlags(args[1], true)
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *class == "" || *file == "" {
			fs.Usage()
			return errHelp
		}
		switch args[1] {
		case "import-roster":
			return cli.importRoster(*class, *file)
		case "import-grades":
			return cli.importGrades(*class, *file)
		default:
			return cli.export(*class, *file)
		}

	case "report":
		fs, class, _ := classFlags("report", false)
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *class == "" {
			fs.Usage()
			return errHelp
		}
		return cli.report(*class)

	default:
		cli.printUsage()
		return errHelp
	}
}
