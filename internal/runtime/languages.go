package runtime

func builtinLanguages() []*Language {
	return []*Language{
		// Native toolchains producing <path>.out.
		{
			Name:       "c",
			Extensions: []string{"c"},
			Compile:    []string{"gcc", "-o", "{path}.out", "{path}"},
			Run:        []string{"{exe}"},
		},
		{
			Name:       "cpp",
			Extensions: []string{"cpp", "cc", "cxx"},
			Compile:    []string{"g++", "-std=c++17", "-o", "{path}.out", "{path}"},
			Run:        []string{"{exe}"},
		},
		{
			Name:       "rust",
			Extensions: []string{"rs"},
			Compile:    []string{"rustc", "-o", "{path}.out", "{path}"},
			Run:        []string{"{exe}"},
		},

		// JVM.
		{
			Name:       "java",
			Extensions: []string{"java"},
			Compile:    []string{"javac", "{path}"},
			Run:        []string{"java", "{artifact}"},
			StripLen:   len(".java"),
		},
		{
			Name:       "kotlin",
			Extensions: []string{"kt"},
			Compile:    []string{"kotlinc", "{path}", "-include-runtime", "-d", "{path}.jar"},
			Run:        []string{"java", "-jar", "{path}.jar"},
		},

		// Toolchains with a one-shot "build and run" driver.
		{
			Name:       "go",
			Extensions: []string{"go"},
			Compile:    []string{"go", "build", "{path}"},
			Run:        []string{"./{artifact}"},
			Both:       []string{"go", "run", "{path}"},
			StripLen:   len(".go"),
		},
		{
			Name:       "swift",
			Extensions: []string{"swift"},
			Compile:    []string{"swiftc", "{path}"},
			Run:        []string{"./{artifact}"},
			Both:       []string{"swift", "{path}"},
			StripLen:   len(".swift"),
		},
		{
			Name:       "typescript",
			Extensions: []string{"ts"},
			Compile:    []string{"tsc", "{path}"},
			Run:        []string{"node", "{artifact}.js"},
			Both:       []string{"ts-node", "{path}"},
			StripLen:   len(".ts"),
		},

		// Interpreters.
		{Name: "python", Extensions: []string{"py"}, Interpret: []string{"python3", "{path}"}},
		{Name: "javascript", Extensions: []string{"js"}, Interpret: []string{"node", "{path}"}},
		{Name: "shell", Extensions: []string{"sh", "bash"}, Interpret: []string{"bash", "{path}"}},
		{Name: "ruby", Extensions: []string{"rb"}, Interpret: []string{"ruby", "{path}"}},
		{Name: "php", Extensions: []string{"php"}, Interpret: []string{"php", "{path}"}},
		{Name: "perl", Extensions: []string{"pl"}, Interpret: []string{"perl", "{path}"}},
		{Name: "lua", Extensions: []string{"lua"}, Interpret: []string{"lua", "{path}"}},
		{Name: "r", Extensions: []string{"r", "R"}, Interpret: []string{"Rscript", "{path}"}},
		{Name: "dart", Extensions: []string{"dart"}, Interpret: []string{"dart", "{path}"}},
	}
}
