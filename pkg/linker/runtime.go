package linker

const header = "(function() {\nvar modules = {\n"

// runtime follows the module registry. The cache entry is created before the
// module function runs so a circular require sees the partial exports.
const runtime = `};

var cache = {};

function __minipack_require__(id) {
  var cached = cache[id];
  if (cached !== undefined) {
    return cached.exports;
  }
  if (!Object.prototype.hasOwnProperty.call(modules, id)) {
    throw new Error("Cannot find module '" + id + "'");
  }
  var module = cache[id] = {
    id: id,
    exports: {}
  };
  modules[id].call(module.exports, module, module.exports, __minipack_require__);
  return module.exports;
}

`

const footer = "})();\n"
